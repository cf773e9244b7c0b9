package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for the treatments catalog
type Repository interface {
	Create(ctx context.Context, req *CreateServiceRequest) (*Service, error)
	GetByID(ctx context.Context, id string) (*Service, error)
	List(ctx context.Context) ([]Service, error)
	// SearchActiveByName returns the oldest active service whose name contains
	// the given fragment, case-insensitive. First match wins.
	SearchActiveByName(ctx context.Context, name string) (*Service, error)
}

// InMemoryRepository is an implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	services []*Service
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create adds a new catalog entry in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		ID:                  uuid.New().String(),
		Name:                req.Name,
		Zone:                req.Zone,
		BasePrice:           req.BasePrice,
		DurationMinutes:     req.DurationMinutes,
		RecommendedSessions: req.RecommendedSessions,
		Technology:          req.Technology,
		Active:              true,
		CreatedAt:           time.Now().UTC(),
	}

	r.mu.Lock()
	r.services = append(r.services, s)
	r.mu.Unlock()

	return s, nil
}

// GetByID retrieves a catalog entry by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrServiceNotFound
}

// List returns all catalog entries in insertion order
func (r *InMemoryRepository) List(ctx context.Context) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, *s)
	}
	return out, nil
}

// SearchActiveByName returns the first active service whose name contains the fragment
func (r *InMemoryRepository) SearchActiveByName(ctx context.Context, name string) (*Service, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrServiceNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.Active && strings.Contains(strings.ToLower(s.Name), needle) {
			return s, nil
		}
	}
	return nil, ErrServiceNotFound
}

// Deactivate marks a catalog entry inactive so new appointments cannot use it.
func (r *InMemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.services {
		if s.ID == id {
			s.Active = false
			return nil
		}
	}
	return ErrServiceNotFound
}
