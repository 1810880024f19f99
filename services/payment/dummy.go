package paymentsvc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/somo-lms/somo/core/payment"
)

// DummyProvider fakes a payment processor. Intents succeed once marked so
// via MarkSucceeded; used in development and tests.
type DummyProvider struct {
	mu        sync.Mutex
	succeeded map[string]bool
	canceled  map[string]bool
}

var _ payment.Provider = (*DummyProvider)(nil)

func NewDummyProvider() *DummyProvider {
	return &DummyProvider{
		succeeded: make(map[string]bool),
		canceled:  make(map[string]bool),
	}
}

func (svc *DummyProvider) CreateIntent(ctx context.Context, amount int, currency, description string) (string, string, error) {
	id := "pi_" + uuid.New().String()
	return id, id + "_secret", nil
}

func (svc *DummyProvider) IntentSucceeded(ctx context.Context, intentID string) (bool, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.succeeded[intentID], nil
}

func (svc *DummyProvider) CancelIntent(ctx context.Context, intentID string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.canceled[intentID] = true
	return nil
}

func (svc *DummyProvider) MarkSucceeded(intentID string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.succeeded[intentID] = true
}

func (svc *DummyProvider) Canceled(intentID string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.canceled[intentID]
}
