package patients

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context) ([]Patient, error)
	// SearchByName returns the oldest patient whose full name contains the
	// given fragment, case-insensitive. First match wins.
	SearchByName(ctx context.Context, name string) (*Patient, error)
	// GetByPhone returns the patient with exactly this phone number.
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
}

// InMemoryRepository is an implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients []*Patient
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create registers a new patient in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Patient{
		ID:             uuid.New().String(),
		FullName:       req.FullName,
		Phone:          req.Phone,
		Sex:            req.Sex,
		BirthDate:      req.BirthDate,
		TreatmentZones: req.TreatmentZones,
		Notes:          req.Notes,
		CreatedAt:      time.Now().UTC(),
	}

	r.mu.Lock()
	r.patients = append(r.patients, p)
	r.mu.Unlock()

	return p, nil
}

// GetByID retrieves a patient by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

// List returns all patients in insertion order
func (r *InMemoryRepository) List(ctx context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, *p)
	}
	return out, nil
}

// SearchByName returns the first patient whose name contains the fragment
func (r *InMemoryRepository) SearchByName(ctx context.Context, name string) (*Patient, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrPatientNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if strings.Contains(strings.ToLower(p.FullName), needle) {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

// GetByPhone returns the patient with this exact phone number
func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrPatientNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.Phone == phone {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}
