package patients

import "errors"

var (
	// ErrMissingName is returned when the full name is absent
	ErrMissingName = errors.New("nombre_completo is required")

	// ErrInvalidSex is returned when the sex field is not M or F
	ErrInvalidSex = errors.New("sexo must be M or F")

	// ErrPatientNotFound is returned when no patient matches a lookup
	ErrPatientNotFound = errors.New("patient not found")
)
