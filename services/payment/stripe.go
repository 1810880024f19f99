package paymentsvc

import (
	"context"

	"github.com/pkg/errors"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/payment"
)

type stripeService struct {
	api *client.API
}

var _ payment.Provider = (*stripeService)(nil)

func NewStripeService(conf *core.Config) *stripeService {
	return &stripeService{api: client.New(conf.StripeSecretKey, nil)}
}

func (svc stripeService) CreateIntent(ctx context.Context, amount int, currency, description string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(int64(amount)),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
	}
	pi, err := svc.api.PaymentIntents.New(params)
	if err != nil {
		return "", "", errors.Wrap(err, "creating stripe intent")
	}
	return pi.ID, pi.ClientSecret, nil
}

func (svc stripeService) IntentSucceeded(ctx context.Context, intentID string) (bool, error) {
	pi, err := svc.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return false, errors.Wrap(err, "fetching stripe intent")
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}

func (svc stripeService) CancelIntent(ctx context.Context, intentID string) error {
	_, err := svc.api.PaymentIntents.Cancel(intentID, &stripe.PaymentIntentCancelParams{Params: stripe.Params{Context: ctx}})
	return errors.Wrap(err, "canceling stripe intent")
}
