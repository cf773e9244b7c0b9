package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmoran/clinica-backend/internal/http/middleware"
	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Handler provides HTTP endpoints for the cash register.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new payments HTTP handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns a chi router with payment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListByDay)
	r.Post("/", h.Create)
	r.Get("/total", h.DailyTotal)
	return r
}

func dayParam(r *http.Request) (time.Time, error) {
	q := r.URL.Query().Get("fecha")
	if q == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", q)
}

// ListByDay returns the payments received on a calendar day.
// GET /payments?fecha=2026-03-15
func (h *Handler) ListByDay(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		http.Error(w, `{"error": "fecha must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	list, err := h.repo.ListByDay(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to list payments", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create records a payment. The cashier id comes from the operator's token,
// never from the request body.
// POST /payments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if claims, ok := middleware.OperatorFromContext(r.Context()); ok {
		req.CashierID = claims.Subject
	}

	p, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingPatient) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidMethod) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to record payment", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("payment recorded", "payment_id", p.ID, "amount", p.Amount, "method", p.Method)
	writeJSON(w, http.StatusCreated, p)
}

// DailyTotal returns the sum collected on a calendar day.
// GET /payments/total?fecha=2026-03-15
func (h *Handler) DailyTotal(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		http.Error(w, `{"error": "fecha must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	total, err := h.repo.DailyTotal(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to compute daily total", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fecha": day.Format("2006-01-02"), "total": total})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
