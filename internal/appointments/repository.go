package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage
type Repository interface {
	Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByDay(ctx context.Context, day time.Time) ([]Appointment, error)
}

// InMemoryRepository is an implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments []*Appointment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create books a new appointment in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a := &Appointment{
		ID:            uuid.New().String(),
		PatientID:     req.PatientID,
		ServiceID:     req.ServiceID,
		ScheduledAt:   req.ScheduledAt,
		SessionNumber: req.SessionNumber,
		Status:        req.Status,
		SessionPrice:  req.SessionPrice,
		OperatorID:    req.OperatorID,
		CreatedAt:     time.Now().UTC(),
	}

	r.mu.Lock()
	r.appointments = append(r.appointments, a)
	r.mu.Unlock()

	return a, nil
}

// GetByID retrieves an appointment by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

// ListByDay returns appointments scheduled on the given calendar day (UTC).
func (r *InMemoryRepository) ListByDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if !a.ScheduledAt.Before(start) && a.ScheduledAt.Before(end) {
			out = append(out, *a)
		}
	}
	return out, nil
}
