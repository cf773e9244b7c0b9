package appointments

import (
	"time"
)

// StatusScheduled is the initial state for every imported or booked appointment.
const StatusScheduled = "agendada"

// Appointment represents a scheduled treatment session.
type Appointment struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	ServiceID     string    `json:"service_id"`
	ScheduledAt   time.Time `json:"fecha_hora"`
	SessionNumber int       `json:"numero_sesion"`
	Status        string    `json:"estado"`
	SessionPrice  float64   `json:"precio_sesion"`
	OperatorID    string    `json:"operadora"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateAppointmentRequest represents the request body for booking a session.
type CreateAppointmentRequest struct {
	PatientID     string    `json:"patient_id"`
	ServiceID     string    `json:"service_id"`
	ScheduledAt   time.Time `json:"fecha_hora"`
	SessionNumber int       `json:"numero_sesion"`
	Status        string    `json:"estado"`
	SessionPrice  float64   `json:"precio_sesion"`
	OperatorID    string    `json:"-"`
}

// Validate validates the create appointment request and fills defaults.
func (r *CreateAppointmentRequest) Validate() error {
	if r.PatientID == "" {
		return ErrMissingPatient
	}
	if r.ServiceID == "" {
		return ErrMissingService
	}
	if r.ScheduledAt.IsZero() {
		return ErrMissingDate
	}
	if r.SessionNumber <= 0 {
		r.SessionNumber = 1
	}
	if r.Status == "" {
		r.Status = StatusScheduled
	}
	return nil
}
