package members

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/platform/httpx"
)

// Handler exposes member endpoints. Reads require member viewing, writes
// require member management.
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

// MountRoutes registers member routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapViewMembers))
		r.Get("/", h.listMembers)
		r.Get("/{memberID}", h.getMember)
		r.Get("/{memberID}/subscriptions", h.listSubscriptions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapManageMembers))
		r.Post("/", h.createMember)
		r.Put("/{memberID}", h.updateMember)
		r.Post("/{memberID}/deactivate", h.deactivateMember)
		r.Post("/{memberID}/subscriptions", h.addSubscription)
	})
}

type memberRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
	FullName string `json:"full_name" validate:"required,min=2,max=160"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=32"`
}

type memberUpdateRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=160"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=32"`
}

type subscriptionRequest struct {
	Plan       string    `json:"plan" validate:"required,min=2,max=80"`
	PriceCents int64     `json:"price_cents" validate:"gte=0"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	ExpiresAt  time.Time `json:"expires_at" validate:"required"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
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
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, pagination, err := h.service.List(r.Context(), decision, branchID, r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		if errors.Is(err, authz.ErrBranchAccessDenied) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
			return
		}
		h.logger.Error("list members", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if list == nil {
		list = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": list, "pagination": pagination})
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	m, err := h.service.Get(r.Context(), decision, id)
	if err != nil {
		h.respondError(w, err, "get member")
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}
	m, err := h.service.Create(r.Context(), decision, CreateInput{
		BranchID: branchID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		h.respondError(w, err, "create member")
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	var req memberUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.Update(r.Context(), decision, id, UpdateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		h.respondError(w, err, "update member")
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) deactivateMember(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), decision, id); err != nil {
		h.respondError(w, err, "deactivate member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	subs, err := h.service.Subscriptions(r.Context(), decision, id)
	if err != nil {
		h.respondError(w, err, "list subscriptions")
		return
	}
	if subs == nil {
		subs = []Subscription{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (h *Handler) addSubscription(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())
	id, ok := h.memberID(w, r)
	if !ok {
		return
	}
	var req subscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sub, err := h.service.AddSubscription(r.Context(), decision, id, SubscriptionInput{
		Plan:       req.Plan,
		PriceCents: req.PriceCents,
		StartsAt:   req.StartsAt,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.respondError(w, err, "add subscription")
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed member identifier")
		return uuid.Nil, false
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
	case errors.Is(err, ErrBranchOutOfScope), errors.Is(err, authz.ErrBranchAccessDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
	case errors.Is(err, ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "subscription expiry must follow its start")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
