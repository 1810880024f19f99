package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/review"
	"github.com/somo-lms/somo/storage/database"
)

type reviewRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	UserID    string    `db:"user_id"`
	Rating    int       `db:"rating"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row reviewRow) review() review.Review {
	return review.Review(row)
}

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	rev.ID = uuid.New().String()
	err := database.Retry(ctx, func() error {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO review (id, course_id, user_id, rating, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rev.ID, rev.CourseID, rev.UserID, rev.Rating, rev.Content, rev.CreatedAt, rev.UpdatedAt)
		return err
	})
	if err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return rev, nil
}

func (repo reviewRepository) QueryReviews(ctx context.Context, courseID string, limit, offset int) ([]review.Review, int, error) {
	var total int
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM review WHERE course_id = $1", courseID)
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting reviews")
	}

	var rows []reviewRow
	err = database.Retry(ctx, func() error {
		rows = rows[:0]
		return repo.db.SelectContext(ctx, &rows, `
			SELECT * FROM review
			WHERE course_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`,
			courseID, limit, offset)
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying reviews")
	}

	reviews := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.review())
	}
	return reviews, total, nil
}

func (repo reviewRepository) GetReviewByID(ctx context.Context, id string) (review.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return review.Review{}, review.ErrNotFound
	}

	var row reviewRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row, "SELECT * FROM review WHERE id = $1", id)
	})
	if err != nil {
		return review.Review{}, trapNoRowsErr(err, review.ErrNotFound, "finding review")
	}
	return row.review(), nil
}

func (repo reviewRepository) GetUserReview(ctx context.Context, userID, courseID string) (review.Review, error) {
	var row reviewRow
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &row,
			"SELECT * FROM review WHERE user_id = $1 AND course_id = $2", userID, courseID)
	})
	if err != nil {
		return review.Review{}, trapNoRowsErr(err, review.ErrNotFound, "finding review")
	}
	return row.review(), nil
}

func (repo reviewRepository) DeleteReview(ctx context.Context, id string) error {
	return database.Retry(ctx, func() error {
		res, err := repo.db.ExecContext(ctx, "DELETE FROM review WHERE id = $1", id)
		if err != nil {
			return errors.Wrap(err, "deleting review")
		}
		if cnt, _ := res.RowsAffected(); cnt == 0 {
			return review.ErrNotFound
		}
		return nil
	})
}

func (repo reviewRepository) CourseRating(ctx context.Context, courseID string) (review.CourseRating, error) {
	var agg struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	err := database.Retry(ctx, func() error {
		return repo.db.GetContext(ctx, &agg, `
			SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
			FROM review WHERE course_id = $1`,
			courseID)
	})
	if err != nil {
		return review.CourseRating{}, errors.Wrap(err, "aggregating reviews")
	}
	return review.CourseRating{CourseID: courseID, Average: agg.Average, Count: agg.Count}, nil
}
