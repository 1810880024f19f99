package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/somo-lms/somo/core/review"
)

type reviewRepository struct {
	db *reviewTable
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db.review}
}

func (repo *reviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rev.ID = uuid.New().String()
	repo.db.table[rev.ID] = &rev
	return rev, nil
}

func (repo *reviewRepository) QueryReviews(ctx context.Context, courseID string, limit, offset int) ([]review.Review, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]review.Review, 0)
	for _, rev := range repo.db.table {
		if rev.CourseID == courseID {
			all = append(all, *rev)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []review.Review{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (repo *reviewRepository) GetReviewByID(ctx context.Context, id string) (review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rev, ok := repo.db.table[id]; ok {
		return *rev, nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) GetUserReview(ctx context.Context, userID, courseID string) (review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rev := range repo.db.table {
		if rev.UserID == userID && rev.CourseID == courseID {
			return *rev, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) DeleteReview(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return review.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *reviewRepository) CourseRating(ctx context.Context, courseID string) (review.CourseRating, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rating := review.CourseRating{CourseID: courseID}
	var sum int
	for _, rev := range repo.db.table {
		if rev.CourseID == courseID {
			rating.Count++
			sum += rev.Rating
		}
	}
	if rating.Count > 0 {
		rating.Average = float64(sum) / float64(rating.Count)
	}
	return rating, nil
}
