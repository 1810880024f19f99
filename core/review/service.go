package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("review not found")
	ErrNotEnrolled     = errors.New("only enrolled users may review a course")
	ErrAlreadyReviewed = errors.New("you have already reviewed this course")
	ErrNotAuthor       = errors.New("only the author may modify this")
)

type (
	Repository interface {
		CreateReview(ctx context.Context, rev Review) (Review, error)
		QueryReviews(ctx context.Context, courseID string, limit, offset int) ([]Review, int, error)
		GetReviewByID(ctx context.Context, id string) (Review, error)
		GetUserReview(ctx context.Context, userID, courseID string) (Review, error)
		DeleteReview(ctx context.Context, id string) error
		CourseRating(ctx context.Context, courseID string) (CourseRating, error)
	}

	// Courses is the slice of the course service the review service needs.
	Courses interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
		IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, courseID string, nr NewReview) (Review, error)
		QueryByCourse(ctx context.Context, courseID string, page, limit int) (Page, error)
		Rating(ctx context.Context, courseID string) (CourseRating, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo    Repository
		courses Courses
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courses Courses) Service {
	return &service{repo: repo, courses: courses}
}

func (svc *service) Create(ctx context.Context, actor user.User, courseID string, nr NewReview) (Review, error) {
	if _, err := svc.courses.GetByID(ctx, courseID); err != nil {
		return Review{}, err
	}

	enrolled, err := svc.courses.IsEnrolled(ctx, actor.ID, courseID)
	if err != nil {
		return Review{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Review{}, ErrNotEnrolled
	}

	// one review per user per course
	if _, err = svc.repo.GetUserReview(ctx, actor.ID, courseID); err == nil {
		return Review{}, core.NewValidationError(ErrAlreadyReviewed)
	} else if errors.Cause(err) != ErrNotFound {
		return Review{}, err
	}

	now := time.Now().UTC()
	rev := Review{
		CourseID:  courseID,
		UserID:    actor.ID,
		Rating:    nr.Rating,
		Content:   nr.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateReview(ctx, rev)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string, page, limit int) (Page, error) {
	page, limit = core.CleanPageLimit(page, limit)

	reviews, total, err := svc.repo.QueryReviews(ctx, courseID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return Page{
		Reviews:    reviews,
		Pagination: core.NewPagination(page, limit, total),
	}, nil
}

func (svc *service) Rating(ctx context.Context, courseID string) (CourseRating, error) {
	return svc.repo.CourseRating(ctx, courseID)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	rev, err := svc.repo.GetReviewByID(ctx, id)
	if err != nil {
		return err
	}
	if rev.UserID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}
	return svc.repo.DeleteReview(ctx, id)
}
