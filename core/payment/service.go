package payment

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
	ErrNotFound     = errors.New("payment not found")
	ErrFreeCourse   = errors.New("this course is free, enroll directly")
	ErrNotPending   = errors.New("payment is not pending")
	ErrNotOwner     = errors.New("payment belongs to another user")
	ErrNotSucceeded = errors.New("payment has not succeeded with the provider")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pay Payment) (Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		QueryPayments(ctx context.Context, userID string) ([]Payment, error)
		UpdatePayment(ctx context.Context, pay Payment) (Payment, error)
	}

	// Provider is the payment processor boundary (Stripe in production).
	Provider interface {
		CreateIntent(ctx context.Context, amount int, currency, description string) (intentID, clientSecret string, err error)
		IntentSucceeded(ctx context.Context, intentID string) (bool, error)
		CancelIntent(ctx context.Context, intentID string) error
	}

	// Courses is the slice of the course service the payment service needs.
	Courses interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
		Enroll(ctx context.Context, userID, courseID string) (course.Enrollment, error)
	}

	Service interface {
		Checkout(ctx context.Context, actor user.User, courseID string) (CheckoutIntent, error)
		Confirm(ctx context.Context, actor user.User, paymentID string) (Payment, error)
		Cancel(ctx context.Context, actor user.User, paymentID string) (Payment, error)
		QueryMine(ctx context.Context, actor user.User) ([]Payment, error)
	}

	service struct {
		repo     Repository
		provider Provider
		courses  Courses
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, provider Provider, courses Courses, conf *core.Config) Service {
	return &service{repo: repo, provider: provider, courses: courses, conf: conf}
}

// Checkout creates a provider payment intent and a pending Payment row for
// a priced course. Free courses are rejected with a validation error; they
// enroll through the course enroll endpoint instead.
func (svc *service) Checkout(ctx context.Context, actor user.User, courseID string) (CheckoutIntent, error) {
	crs, err := svc.courses.GetByID(ctx, courseID)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if crs.IsFree() {
		return CheckoutIntent{}, core.NewValidationError(ErrFreeCourse)
	}

	intentID, clientSecret, err := svc.provider.CreateIntent(ctx, crs.Price, svc.conf.StripeCurrency, crs.Title)
	if err != nil {
		return CheckoutIntent{}, errors.Wrap(err, "creating payment intent")
	}

	now := time.Now().UTC()
	pay := Payment{
		UserID:    actor.ID,
		CourseID:  crs.ID,
		Amount:    crs.Price,
		Currency:  svc.conf.StripeCurrency,
		IntentID:  intentID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	pay, err = svc.repo.CreatePayment(ctx, pay)
	if err != nil {
		return CheckoutIntent{}, err
	}
	return CheckoutIntent{Payment: pay, ClientSecret: clientSecret}, nil
}

// Confirm checks the provider intent and, on success, marks the payment
// succeeded and enrolls the payer in the course.
func (svc *service) Confirm(ctx context.Context, actor user.User, paymentID string) (Payment, error) {
	pay, err := svc.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if pay.UserID != actor.ID {
		return Payment{}, ErrNotOwner
	}
	if pay.Status != StatusPending {
		return Payment{}, core.NewValidationError(ErrNotPending)
	}

	ok, err := svc.provider.IntentSucceeded(ctx, pay.IntentID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "checking payment intent")
	}
	if !ok {
		return Payment{}, core.NewValidationError(ErrNotSucceeded)
	}

	pay.Status = StatusSucceeded
	pay.UpdatedAt = time.Now().UTC()
	pay, err = svc.repo.UpdatePayment(ctx, pay)
	if err != nil {
		return Payment{}, err
	}

	if _, err = svc.courses.Enroll(ctx, pay.UserID, pay.CourseID); err != nil {
		// already enrolled is fine; anything else bubbles up
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			return Payment{}, errors.Wrap(err, "enrolling after payment")
		}
	}
	return pay, nil
}

func (svc *service) Cancel(ctx context.Context, actor user.User, paymentID string) (Payment, error) {
	pay, err := svc.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if pay.UserID != actor.ID && !actor.IsAdmin() {
		return Payment{}, ErrNotOwner
	}
	if pay.Status != StatusPending {
		return Payment{}, core.NewValidationError(ErrNotPending)
	}

	if err = svc.provider.CancelIntent(ctx, pay.IntentID); err != nil {
		return Payment{}, errors.Wrap(err, "canceling payment intent")
	}

	pay.Status = StatusCanceled
	pay.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePayment(ctx, pay)
}

func (svc *service) QueryMine(ctx context.Context, actor user.User) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, actor.ID)
}
