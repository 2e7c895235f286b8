package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/carefront-intake/internal/auth"
	"github.com/wolfman30/carefront-intake/internal/compliance"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	httpmiddleware "github.com/wolfman30/carefront-intake/internal/http/middleware"
	"github.com/wolfman30/carefront-intake/internal/intake"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Auditor receives admin access and roster change events.
type Auditor interface {
	Log(actor string, action compliance.Action, details string, outcome compliance.Outcome)
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *intake.Handler
	DoctorsHandler     *doctors.Handler
	AuditHandler       *compliance.Handler
	Authenticator      auth.Authenticator
	Auditor            Auditor
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// MessageLimiter throttles chat turns per client (optional).
	MessageLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.IntakeHandler == nil || cfg.DoctorsHandler == nil {
		panic("router: intake and doctors handlers are required")
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(httpmiddleware.CORSOptions{AllowedOrigins: cfg.CORSAllowedOrigins}))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.MessageLimiter != nil {
		throttle = httpmiddleware.RateLimit(cfg.MessageLimiter, httpmiddleware.ClientIP)
	}

	ih := cfg.IntakeHandler
	dh := cfg.DoctorsHandler.WithChangeHook(func(r *http.Request, summary string) {
		if cfg.Auditor != nil {
			cfg.Auditor.Log(actorFrom(r), compliance.ActionRosterChange, summary, compliance.OutcomeSuccess)
		}
	})

	// Patient-facing endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Get("/doctors", dh.List)

		public.Route("/patients", func(r chi.Router) {
			r.Post("/identify", ih.Identify)
			r.Get("/{cardID}", ih.GetPatient)
			r.Post("/{cardID}/appointments", ih.RequestAppointment)
		})

		public.Route("/intake", func(r chi.Router) {
			r.Post("/sessions", ih.StartSession)
			r.Get("/sessions/{sessionID}", ih.GetSession)
			r.With(throttle).Post("/sessions/{sessionID}/messages", ih.Message)
			r.Post("/sessions/{sessionID}/end", ih.End)
			r.With(throttle).Get("/ws", ih.HandleWebSocket)
		})
	})

	// Admin endpoints
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireAdmin(cfg.Authenticator, func(r *http.Request, err error) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("admin access denied", "path", r.URL.Path, "error", err)
			}
			if cfg.Auditor != nil {
				cfg.Auditor.Log("unknown", compliance.ActionUnauthorizedAccess,
					r.Method+" "+r.URL.Path, compliance.OutcomeFailure)
			}
		}))

		admin.Get("/appointments", ih.ListAppointments)
		admin.Put("/patients/{cardID}/appointments/{appointmentID}", ih.UpdateAppointmentStatus)
		admin.Get("/patients/export.xlsx", ih.ExportPatients)

		admin.Post("/doctors", dh.Create)
		admin.Delete("/doctors/{doctorID}", dh.Delete)
		admin.Put("/doctors/{doctorID}/status", dh.SetStatus)

		if cfg.AuditHandler != nil {
			admin.Get("/audit", cfg.AuditHandler.List)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func actorFrom(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok && p.Subject != "" {
		return p.Subject
	}
	return "admin"
}
