package payment

import "time"

// Payment statuses
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
)

type Payment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Amount    int       `json:"amount"` // cents
	Currency  string    `json:"currency"`
	IntentID  string    `json:"-"` // provider payment-intent id
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// CheckoutIntent is what a client needs to complete a payment with the provider.
type CheckoutIntent struct {
	Payment      Payment `json:"payment"`
	ClientSecret string  `json:"client_secret"`
}
