package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/metrics"
	"github.com/hackgods/clinic-payment-ledger/internal/payment"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Ledger       *payment.Ledger
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
	CORSOrigins  []string
	Now          func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", "X-User-ID", "X-User-Name", "X-User-Role"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	}).Handler)
	r.Use(IdentityMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/psychologists", listPsychologistsHandler(cfg.Appointments))
	r.Post("/psychologists", createPsychologistHandler(cfg.Appointments))

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/summary", appointmentSummaryHandler(cfg.Appointments, now))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/confirm", appointmentActionHandler(cfg.Appointments, confirmAppointment))
		r.Post("/{id}/complete", appointmentActionHandler(cfg.Appointments, completeAppointment))
		r.Post("/{id}/cancel", appointmentActionHandler(cfg.Appointments, cancelAppointment))
		r.Put("/{id}/insurance-token", setInsuranceTokenHandler(cfg.Appointments))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/eligible", eligibleAppointmentsHandler(cfg.Ledger))
		r.Get("/dashboard", dashboardHandler(cfg.Ledger))
		r.Get("/psychologists/{id}/summary", psychologistSummaryHandler(cfg.Ledger))

		r.Get("/batches", listBatchesHandler(cfg.Ledger))
		r.Get("/batches/recent", recentBatchesHandler(cfg.Ledger))
		r.Get("/batches/{id}", getBatchHandler(cfg.Ledger))
		r.Get("/batches/{id}/statement.xlsx", batchStatementHandler(cfg.Ledger))

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)
			r.Post("/batches", createBatchHandler(cfg.Ledger, cfg.Appointments))
			r.Post("/batches/{id}/approve", approveBatchHandler(cfg.Ledger))
			r.Post("/batches/{id}/contest", contestBatchHandler(cfg.Ledger))
			r.Post("/batches/{id}/pay", payBatchHandler(cfg.Ledger))
			r.Post("/dashboard/refresh", refreshDashboardHandler(cfg.Ledger))
		})
	})

	r.Get("/finance/summary", financeSummaryHandler(cfg.Ledger, now))

	return r
}
