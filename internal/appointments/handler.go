package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Handler provides HTTP endpoints for the appointment book.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new appointments HTTP handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns a chi router with appointment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListByDay)
	r.Post("/", h.Create)
	r.Get("/{appointmentID}", h.Get)
	return r
}

// ListByDay returns the appointments for a calendar day. The day comes from
// the ?fecha= query parameter and defaults to today.
// GET /appointments?fecha=2026-03-15
func (h *Handler) ListByDay(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if q := r.URL.Query().Get("fecha"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, `{"error": "fecha must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		day = parsed
	}

	list, err := h.repo.ListByDay(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create books a new appointment.
// POST /appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	a, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingPatient) || errors.Is(err, ErrMissingService) || errors.Is(err, ErrMissingDate) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to create appointment", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("appointment created", "appointment_id", a.ID, "patient_id", a.PatientID)
	writeJSON(w, http.StatusCreated, a)
}

// Get returns one appointment by id.
// GET /appointments/{appointmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	a, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "appointment not found"})
			return
		}
		h.logger.Error("failed to get appointment", "appointment_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
