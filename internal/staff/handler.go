package staff

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/platform/httpx"
)

// Handler manages staff management endpoints. Everything is behind the
// settings capability; branch-scoped admins can only place staff inside
// their own branches.
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

// MountRoutes registers staff routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapChangeSettings))
		r.Get("/", h.listStaff)
		r.Get("/{staffID}", h.getStaff)
		r.Post("/", h.createStaff)
		r.Put("/{staffID}", h.updateStaff)
		r.Post("/{staffID}/deactivate", h.deactivateStaff)
		r.Post("/{staffID}/reactivate", h.reactivateStaff)
		r.Put("/{staffID}/permissions", h.setPermissions)
		r.Post("/{staffID}/branches", h.assignBranch)
		r.Delete("/{staffID}/branches/{branchID}", h.unassignBranch)
	})
}

type createStaffRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=160"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=32"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
	BranchID string `json:"branch_id" validate:"required,uuid"`
}

type updateStaffRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=160"`
	Phone    string `json:"phone" validate:"max=32"`
	Role     string `json:"role" validate:"required"`
}

type assignBranchRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": all})
}

func (h *Handler) getStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "get staff")
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var req createStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}

	created, err := h.service.Create(r.Context(), decision, CreateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     authz.StaffRole(req.Role),
		BranchID: branchID,
	})
	if err != nil {
		h.respondError(w, err, "create staff")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateStaff(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	var req updateStaffRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Update(r.Context(), decision, id, req.FullName, req.Phone, authz.StaffRole(req.Role)); err != nil {
		h.respondError(w, err, "update staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateStaff(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), decision, id); err != nil {
		h.respondError(w, err, "deactivate staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactivateStaff(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reactivate(r.Context(), decision, id); err != nil {
		h.respondError(w, err, "reactivate staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	var perms authz.PermissionSet
	if err := httpx.DecodeJSON(r, &perms); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.service.SetPermissions(r.Context(), decision, id, perms); err != nil {
		h.respondError(w, err, "set permissions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignBranch(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	var req assignBranchRequest
	if !h.decode(w, r, &req) {
		return
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}
	if err := h.service.AssignBranch(r.Context(), decision, id, branchID); err != nil {
		h.respondError(w, err, "assign branch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassignBranch(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.staffID(w, r)
	if !ok {
		return
	}
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}
	if err := h.service.UnassignBranch(r.Context(), decision, id, branchID); err != nil {
		h.respondError(w, err, "unassign branch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) staffID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "staffID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed staff identifier")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request fields are invalid")
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "staff member not found")
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "email already in use")
	case errors.Is(err, ErrDuplicateAssignment):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "branch already assigned")
	case errors.Is(err, ErrInvalidRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown staff role")
	case errors.Is(err, ErrBranchOutOfScope):
		// Same response whether the branch exists or not.
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
