package appointments

import "errors"

var (
	// ErrMissingPatient is returned when the patient reference is absent
	ErrMissingPatient = errors.New("patient_id is required")

	// ErrMissingService is returned when the service reference is absent
	ErrMissingService = errors.New("service_id is required")

	// ErrMissingDate is returned when the scheduled time is absent
	ErrMissingDate = errors.New("fecha_hora is required")

	// ErrAppointmentNotFound is returned when no appointment matches a lookup
	ErrAppointmentNotFound = errors.New("appointment not found")
)
