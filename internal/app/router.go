package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gymflow-app/gymflow/internal/analytics"
	"github.com/gymflow-app/gymflow/internal/auth"
	"github.com/gymflow-app/gymflow/internal/branches"
	"github.com/gymflow-app/gymflow/internal/members"
	"github.com/gymflow-app/gymflow/internal/observability"
	"github.com/gymflow-app/gymflow/internal/payments"
	"github.com/gymflow-app/gymflow/internal/staff"
	"github.com/gymflow-app/gymflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler      *auth.Handler
	BranchHandler    *branches.Handler
	StaffHandler     *staff.Handler
	MemberHandler    *members.Handler
	PaymentHandler   *payments.Handler
	AnalyticsHandler *analytics.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with GymFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/branches", params.BranchHandler.MountRoutes)
	r.Route("/staff", params.StaffHandler.MountRoutes)
	r.Route("/members", params.MemberHandler.MountRoutes)
	r.Route("/payments", params.PaymentHandler.MountRoutes)
	r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
