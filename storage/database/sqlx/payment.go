package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/payment"
	"github.com/somo-lms/somo/storage/database"
)

type paymentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Amount    int       `db:"amount"`
	Currency  string    `db:"currency"`
	IntentID  string    `db:"intent_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row paymentRow) payment() payment.Payment {
	return payment.Payment(row)
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pay payment.Payment) (payment.Payment, error) {
	pay.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO payment (id, user_id, course_id, amount, currency, intent_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			pay.ID, pay.UserID, pay.CourseID, pay.Amount, pay.Currency, pay.IntentID, pay.Status, pay.CreatedAt, pay.UpdatedAt)
		return err
	})
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pay, nil
}

func (repo paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}

	var row paymentRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, "SELECT * FROM payment WHERE id = $1", id)
	})
	if err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return row.payment(), nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	var rows []paymentRow
	err := database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows,
			"SELECT * FROM payment WHERE user_id = $1 ORDER BY created_at DESC", userID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	pays := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		pays = append(pays, row.payment())
	}
	return pays, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, pay payment.Payment) (payment.Payment, error) {
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx,
			"UPDATE payment SET status = $2, updated_at = $3 WHERE id = $1",
			pay.ID, pay.Status, pay.UpdatedAt)
		return err
	})
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	return pay, nil
}
