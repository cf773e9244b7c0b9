package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmoran/clinica-backend/internal/appointments"
	httpmiddleware "github.com/dmoran/clinica-backend/internal/http/middleware"
	"github.com/dmoran/clinica-backend/internal/importer"
	"github.com/dmoran/clinica-backend/internal/patients"
	"github.com/dmoran/clinica-backend/internal/payments"
	"github.com/dmoran/clinica-backend/internal/reports"
	"github.com/dmoran/clinica-backend/internal/services"
	"github.com/dmoran/clinica-backend/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	PatientsHandler     *patients.Handler
	ServicesHandler     *services.Handler
	AppointmentsHandler *appointments.Handler
	PaymentsHandler     *payments.Handler
	ImportHandler       *importer.Handler
	ReportsHandler      *reports.Handler
	OperatorJWTSecret   string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status": "ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// CSV templates are downloadable before the operator logs in.
		if cfg.ImportHandler != nil {
			public.Get("/import/templates/{entity}", cfg.ImportHandler.Template)
		}
	})

	// Operator endpoints behind the clinic's session provider
	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.OperatorJWT(cfg.OperatorJWTSecret))

		if cfg.PatientsHandler != nil {
			protected.Mount("/patients", cfg.PatientsHandler.Routes())
		}
		if cfg.ServicesHandler != nil {
			protected.Mount("/services", cfg.ServicesHandler.Routes())
		}
		if cfg.AppointmentsHandler != nil {
			protected.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
		if cfg.PaymentsHandler != nil {
			protected.Mount("/payments", cfg.PaymentsHandler.Routes())
		}
		if cfg.ImportHandler != nil {
			protected.Mount("/import", cfg.ImportHandler.Routes())
		}
		if cfg.ReportsHandler != nil {
			protected.Get("/reports/summary", cfg.ReportsHandler.GetSummary)
		}
	})

	return r
}
