package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Summary aggregates the dashboard counters the reception screen shows.
type Summary struct {
	Patients       int64   `json:"pacientes"`
	ActiveServices int64   `json:"servicios_activos"`
	Appointments   int64   `json:"citas"`
	Payments       int64   `json:"pagos"`
	RevenueTotal   float64 `json:"ingresos_totales"`
	PeriodStart    string  `json:"period_start"`
	PeriodEnd      string  `json:"period_end"`
}

// statsDB defines the database interface needed by Repository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository queries the dashboard aggregates from the database.
type Repository struct {
	db statsDB
}

// NewRepository creates a new reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("reports: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db statsDB) *Repository {
	return &Repository{db: db}
}

// GetSummary retrieves the dashboard counters. Optional start/end times filter
// appointments and payments by their own date columns; patient and catalog
// counts are always all-time.
func (r *Repository) GetSummary(ctx context.Context, start, end *time.Time) (*Summary, error) {
	s := &Summary{}

	var apptFilter, payFilter string
	var args []any
	if start != nil && end != nil {
		apptFilter = " WHERE fecha_hora >= $1 AND fecha_hora < $2"
		payFilter = " WHERE fecha_pago >= $1 AND fecha_pago < $2"
		args = append(args, *start, *end)
		s.PeriodStart = start.Format(time.RFC3339)
		s.PeriodEnd = end.Format(time.RFC3339)
	} else {
		s.PeriodStart = "all-time"
		s.PeriodEnd = "now"
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&s.Patients); err != nil {
		return nil, fmt.Errorf("reports: count patients: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM services WHERE activo`).Scan(&s.ActiveServices); err != nil {
		return nil, fmt.Errorf("reports: count services: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+apptFilter, args...).Scan(&s.Appointments); err != nil {
		return nil, fmt.Errorf("reports: count appointments: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments`+payFilter, args...).Scan(&s.Payments); err != nil {
		return nil, fmt.Errorf("reports: count payments: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(monto), 0) FROM payments`+payFilter, args...).Scan(&s.RevenueTotal); err != nil {
		return nil, fmt.Errorf("reports: sum revenue: %w", err)
	}

	return s, nil
}

// Handler provides HTTP endpoints for dashboard reports.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new reports HTTP handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// GetSummary returns the dashboard counters.
// GET /reports/summary
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, `{"error": "invalid start time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			http.Error(w, `{"error": "invalid end time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		end = &t
	}
	if (start == nil) != (end == nil) {
		http.Error(w, `{"error": "start and end must be provided together"}`, http.StatusBadRequest)
		return
	}

	summary, err := h.repo.GetSummary(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to compute report summary", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
