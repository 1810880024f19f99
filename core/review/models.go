package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/somo-lms/somo/core"
)

type Review struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"` // 1-5
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewReview contains information needed to review a Course.
type NewReview struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"omitempty,max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Content = core.CleanString(nr.Content)
	return validate.Struct(nr)
}

// CourseRating aggregates a course's reviews.
type CourseRating struct {
	CourseID string  `json:"course_id"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// Page is one page of a course's reviews, newest first.
type Page struct {
	Reviews    []Review        `json:"reviews"`
	Pagination core.Pagination `json:"pagination"`
}
