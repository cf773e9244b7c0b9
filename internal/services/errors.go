package services

import "errors"

var (
	// ErrMissingName is returned when the service name is absent
	ErrMissingName = errors.New("nombre is required")

	// ErrMissingZone is returned when the treatment zone is absent
	ErrMissingZone = errors.New("zona is required")

	// ErrInvalidPrice is returned when the base price is not positive
	ErrInvalidPrice = errors.New("precio_base must be greater than zero")

	// ErrServiceNotFound is returned when no service matches a lookup
	ErrServiceNotFound = errors.New("service not found")
)
