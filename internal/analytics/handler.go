package analytics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/platform/httpx"
)

// Handler exposes the KPI dashboard endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapAccessAnalytics))
		r.Get("/overview", h.overview)
	})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var branchID *uuid.UUID
	if raw := r.URL.Query().Get("branch"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
			return
		}
		branchID = &id
	}

	overview, err := h.service.Overview(r.Context(), decision, branchID)
	if err != nil {
		if errors.Is(err, authz.ErrBranchAccessDenied) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
			return
		}
		h.logger.Error("kpi overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}
