package payments

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

// Handler exposes payment and ledger endpoints. Payments and the ledger
// carry separate capabilities; an accountant may hold one without the
// other.
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

// MountRoutes registers payment and ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapAccessPayments))
		r.Get("/", h.listPayments)
		r.Post("/", h.recordPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.CapAccessLedger))
		r.Get("/ledger", h.listLedger)
		r.Post("/ledger", h.addLedgerEntry)
	})
}

type paymentRequest struct {
	MemberID       string    `json:"member_id" validate:"required,uuid"`
	SubscriptionID string    `json:"subscription_id" validate:"omitempty,uuid"`
	AmountCents    int64     `json:"amount_cents" validate:"required,gt=0"`
	Method         string    `json:"method" validate:"required,oneof=cash card transfer"`
	Note           string    `json:"note" validate:"max=300"`
	PaidAt         time.Time `json:"paid_at"`
}

type ledgerRequest struct {
	BranchID    string    `json:"branch_id" validate:"required,uuid"`
	Kind        string    `json:"kind" validate:"required,oneof=income expense"`
	Category    string    `json:"category" validate:"required,min=2,max=80"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	Description string    `json:"description" validate:"max=300"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed member identifier")
		return
	}
	var subscriptionID *uuid.UUID
	if req.SubscriptionID != "" {
		id, err := uuid.Parse(req.SubscriptionID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed subscription identifier")
			return
		}
		subscriptionID = &id
	}

	p, err := h.service.RecordPayment(r.Context(), decision, RecordInput{
		MemberID:       memberID,
		SubscriptionID: subscriptionID,
		AmountCents:    req.AmountCents,
		Method:         req.Method,
		Note:           req.Note,
		PaidAt:         req.PaidAt,
	})
	if err != nil {
		h.respondError(w, err, "record payment")
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	branchID, from, to, page, perPage, ok := h.listParams(w, r)
	if !ok {
		return
	}
	list, pagination, err := h.service.ListPayments(r.Context(), decision, branchID, from, to, page, perPage)
	if err != nil {
		h.respondError(w, err, "list payments")
		return
	}
	if list == nil {
		list = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": list, "pagination": pagination})
}

func (h *Handler) addLedgerEntry(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	var req ledgerRequest
	if !h.decode(w, r, &req) {
		return
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
		return
	}

	e, err := h.service.AddLedgerEntry(r.Context(), decision, LedgerInput{
		BranchID:    branchID,
		Kind:        req.Kind,
		Category:    req.Category,
		AmountCents: req.AmountCents,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		h.respondError(w, err, "add ledger entry")
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	decision, _ := authz.DecisionFromContext(r.Context())

	branchID, from, to, page, perPage, ok := h.listParams(w, r)
	if !ok {
		return
	}
	list, pagination, err := h.service.ListLedger(r.Context(), decision, branchID, from, to, page, perPage)
	if err != nil {
		h.respondError(w, err, "list ledger")
		return
	}
	if list == nil {
		list = []LedgerEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": list, "pagination": pagination})
}

func (h *Handler) listParams(w http.ResponseWriter, r *http.Request) (*uuid.UUID, *time.Time, *time.Time, int, int, bool) {
	q := r.URL.Query()

	var branchID *uuid.UUID
	if raw := q.Get("branch"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed branch identifier")
			return nil, nil, nil, 0, 0, false
		}
		branchID = &id
	}
	var from, to *time.Time
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed from timestamp")
			return nil, nil, nil, 0, 0, false
		}
		from = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed to timestamp")
			return nil, nil, nil, 0, 0, false
		}
		to = &t
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return branchID, from, to, page, perPage, true
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
	case errors.Is(err, ErrMemberNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
	case errors.Is(err, ErrBranchOutOfScope), errors.Is(err, authz.ErrBranchAccessDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch access denied")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidMethod), errors.Is(err, ErrInvalidKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
