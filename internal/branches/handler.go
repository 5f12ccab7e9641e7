package branches

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/platform/httpx"
)

// Handler manages branch endpoints. Creation and updates are owner-only
// affordances; listing is available to any actor holding settings access.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers branch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapChangeSettings))
		r.Get("/", h.listBranches)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireOwner())
		r.Post("/", h.createBranch)
		r.Put("/{branchID}", h.updateBranch)
	})
}

type branchRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Address string `json:"address" validate:"max=300"`
	Phone   string `json:"phone" validate:"max=32"`
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// Staff only see their assigned branches.
	visible := all[:0:0]
	for _, b := range all {
		if decision.Scope.Contains(b.ID) {
			visible = append(visible, b)
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": visible})
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var req branchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch name is required")
		return
	}

	branch, err := h.service.Create(r.Context(), decision.Actor.UserID, req.Name, req.Address, req.Phone)
	if err != nil {
		h.logger.Error("create branch", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, branch)
}

func (h *Handler) updateBranch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}

	var req branchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch name is required")
		return
	}

	branch, err := h.service.Update(r.Context(), id, req.Name, req.Address, req.Phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "branch not found")
			return
		}
		h.logger.Error("update branch", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}
