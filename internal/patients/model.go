package patients

import (
	"strings"
	"time"
)

// Patient represents a clinic patient record.
type Patient struct {
	ID             string     `json:"id"`
	FullName       string     `json:"nombre_completo"`
	Phone          string     `json:"telefono"`
	Sex            string     `json:"sexo,omitempty"`
	BirthDate      *time.Time `json:"cumpleanos,omitempty"`
	TreatmentZones []string   `json:"zonas_tratamiento,omitempty"`
	Notes          string     `json:"notas,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreatePatientRequest represents the request body for registering a patient.
type CreatePatientRequest struct {
	FullName       string     `json:"nombre_completo"`
	Phone          string     `json:"telefono"`
	Sex            string     `json:"sexo"`
	BirthDate      *time.Time `json:"cumpleanos"`
	TreatmentZones []string   `json:"zonas_tratamiento"`
	Notes          string     `json:"notas"`
}

// Validate validates the create patient request
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return ErrMissingName
	}
	switch r.Sex {
	case "", "M", "F":
	default:
		return ErrInvalidSex
	}
	return nil
}
