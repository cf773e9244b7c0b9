package payments

import (
	"strings"
	"time"
)

// Methods lists the payment methods the clinic accepts at the register.
var Methods = []string{"efectivo", "transferencia", "bbva", "clip"}

// ValidMethod reports whether m is an accepted payment method,
// case-insensitive.
func ValidMethod(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Payment represents money received from a patient.
type Payment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Amount    float64   `json:"monto"`
	Method    string    `json:"metodo_pago"`
	PaidAt    time.Time `json:"fecha_pago"`
	CashierID string    `json:"cajero"`
	Concept   string    `json:"concepto,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePaymentRequest represents the request body for recording a payment.
type CreatePaymentRequest struct {
	PatientID string    `json:"patient_id"`
	Amount    float64   `json:"monto"`
	Method    string    `json:"metodo_pago"`
	PaidAt    time.Time `json:"fecha_pago"`
	Concept   string    `json:"concepto"`
	CashierID string    `json:"-"`
}

// Validate validates the create payment request and fills defaults.
func (r *CreatePaymentRequest) Validate() error {
	if r.PatientID == "" {
		return ErrMissingPatient
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !ValidMethod(r.Method) {
		return ErrInvalidMethod
	}
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	if r.PaidAt.IsZero() {
		r.PaidAt = time.Now().UTC()
	}
	return nil
}
