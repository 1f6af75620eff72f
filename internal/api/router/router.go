// Package router wires every feature handler into the HTTP API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dentaflow/clinic-platform/internal/backup"
	"github.com/dentaflow/clinic-platform/internal/billing"
	"github.com/dentaflow/clinic-platform/internal/catalog"
	"github.com/dentaflow/clinic-platform/internal/dashboard"
	httpmiddleware "github.com/dentaflow/clinic-platform/internal/http/middleware"
	"github.com/dentaflow/clinic-platform/internal/patients"
	"github.com/dentaflow/clinic-platform/internal/reports"
	"github.com/dentaflow/clinic-platform/internal/visits"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	PatientsHandler    *patients.Handler
	ServicesHandler    *catalog.Handler
	MedicationsHandler *catalog.Handler
	VisitsHandler      *visits.Handler
	BillingHandler     *billing.Handler
	DashboardHandler   *dashboard.Handler
	ReportsHandler     *reports.Handler
	BackupHandler      *backup.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		// The per-patient visit routes nest inside the patients subrouter;
		// a separate /patients/{patientID} registration would shadow the
		// patient detail routes behind the mount's catch-all.
		nestedVisits := func(r chi.Router) {
			r.Mount("/visits", cfg.VisitsHandler.PatientRoutes())
		}
		switch {
		case cfg.PatientsHandler != nil && cfg.VisitsHandler != nil:
			api.Mount("/patients", cfg.PatientsHandler.Routes(nestedVisits))
		case cfg.PatientsHandler != nil:
			api.Mount("/patients", cfg.PatientsHandler.Routes())
		case cfg.VisitsHandler != nil:
			api.Route("/patients/{patientID}", nestedVisits)
		}
		if cfg.VisitsHandler != nil {
			api.Mount("/visits", cfg.VisitsHandler.Routes())
		}
		if cfg.ServicesHandler != nil {
			api.Mount("/services", cfg.ServicesHandler.Routes())
		}
		if cfg.MedicationsHandler != nil {
			api.Mount("/medications", cfg.MedicationsHandler.Routes())
		}
		if cfg.BillingHandler != nil {
			api.Mount("/billing", cfg.BillingHandler.Routes())
		}
		if cfg.DashboardHandler != nil {
			api.Mount("/dashboard", cfg.DashboardHandler.Routes())
		}
		if cfg.ReportsHandler != nil {
			api.Mount("/reports", cfg.ReportsHandler.Routes())
		}
	})

	// Backup and restore are destructive, admin token only.
	if cfg.BackupHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Mount("/backups", cfg.BackupHandler.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
