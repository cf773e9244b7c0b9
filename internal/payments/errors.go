package payments

import "errors"

var (
	// ErrMissingPatient is returned when the patient reference is absent
	ErrMissingPatient = errors.New("patient_id is required")

	// ErrInvalidAmount is returned when the amount is not positive
	ErrInvalidAmount = errors.New("monto must be greater than zero")

	// ErrInvalidMethod is returned when the payment method is not accepted
	ErrInvalidMethod = errors.New("metodo_pago must be one of efectivo, transferencia, bbva, clip")

	// ErrPaymentNotFound is returned when no payment matches a lookup
	ErrPaymentNotFound = errors.New("payment not found")
)
