package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/somo-lms/somo/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pay payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pay.ID = uuid.New().String()
	repo.db.table[pay.ID] = &pay
	return pay, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pay, ok := repo.db.table[id]; ok {
		return *pay, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pays := make([]payment.Payment, 0)
	for _, pay := range repo.db.table {
		if pay.UserID == userID {
			pays = append(pays, *pay)
		}
	}
	sort.Slice(pays, func(i, j int) bool { return pays[i].CreatedAt.After(pays[j].CreatedAt) })
	return pays, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pay payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[pay.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	orig.Status = pay.Status
	orig.UpdatedAt = pay.UpdatedAt
	return *orig, nil
}
