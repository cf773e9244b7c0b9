package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for payment storage
type Repository interface {
	Create(ctx context.Context, req *CreatePaymentRequest) (*Payment, error)
	ListByDay(ctx context.Context, day time.Time) ([]Payment, error)
	DailyTotal(ctx context.Context, day time.Time) (float64, error)
}

// InMemoryRepository is an implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	payments []*Payment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create records a new payment in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Payment{
		ID:        uuid.New().String(),
		PatientID: req.PatientID,
		Amount:    req.Amount,
		Method:    req.Method,
		PaidAt:    req.PaidAt,
		CashierID: req.CashierID,
		Concept:   req.Concept,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.payments = append(r.payments, p)
	r.mu.Unlock()

	return p, nil
}

// ListByDay returns payments received on the given calendar day (UTC).
func (r *InMemoryRepository) ListByDay(ctx context.Context, day time.Time) ([]Payment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Payment
	for _, p := range r.payments {
		if !p.PaidAt.Before(start) && p.PaidAt.Before(end) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// DailyTotal sums payments received on the given calendar day.
func (r *InMemoryRepository) DailyTotal(ctx context.Context, day time.Time) (float64, error) {
	list, err := r.ListByDay(ctx, day)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range list {
		total += p.Amount
	}
	return total, nil
}
