package memory

import (
	"context"
	"sync"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// PaymentRepository is an in-memory card store.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]models.Payment
	defaults map[string]string
}

// NewPaymentRepository returns an empty store.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]models.Payment),
		defaults: make(map[string]string),
	}
}

func (r *PaymentRepository) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment.CreatedAt = time.Now().UTC()
	stored := *payment
	stored.UserID = cloneString(payment.UserID)
	r.payments[payment.ID] = stored
	return nil
}

func (r *PaymentRepository) SetDefaultForUser(_ context.Context, userID, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[paymentID]; !ok {
		return repository.ErrNotFound
	}
	r.defaults[userID] = paymentID
	return nil
}

func (r *PaymentRepository) DefaultForUser(_ context.Context, userID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.defaults[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := r.payments[id]
	p.UserID = cloneString(p.UserID)
	return &p, nil
}
