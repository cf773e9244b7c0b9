package services

import (
	"strings"
	"time"
)

// DefaultDurationMinutes applies when an imported service omits the duration.
const DefaultDurationMinutes = 60

// DefaultRecommendedSessions applies when an imported service omits the count.
const DefaultRecommendedSessions = 10

// DefaultTechnology applies when an imported service omits the machine label.
const DefaultTechnology = "Soprano Ice"

// Service represents an entry in the treatments catalog.
type Service struct {
	ID                  string    `json:"id"`
	Name                string    `json:"nombre"`
	Zone                string    `json:"zona"`
	BasePrice           float64   `json:"precio_base"`
	DurationMinutes     int       `json:"duracion_minutos"`
	RecommendedSessions int       `json:"sesiones_recomendadas"`
	Technology          string    `json:"tecnologia"`
	Active              bool      `json:"activo"`
	CreatedAt           time.Time `json:"created_at"`
}

// CreateServiceRequest represents the request body for adding a catalog entry.
type CreateServiceRequest struct {
	Name                string  `json:"nombre"`
	Zone                string  `json:"zona"`
	BasePrice           float64 `json:"precio_base"`
	DurationMinutes     int     `json:"duracion_minutos"`
	RecommendedSessions int     `json:"sesiones_recomendadas"`
	Technology          string  `json:"tecnologia"`
}

// Validate validates the create service request and fills defaults.
func (r *CreateServiceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.Zone) == "" {
		return ErrMissingZone
	}
	if r.BasePrice <= 0 {
		return ErrInvalidPrice
	}
	if r.DurationMinutes <= 0 {
		r.DurationMinutes = DefaultDurationMinutes
	}
	if r.RecommendedSessions <= 0 {
		r.RecommendedSessions = DefaultRecommendedSessions
	}
	if strings.TrimSpace(r.Technology) == "" {
		r.Technology = DefaultTechnology
	}
	return nil
}
