package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gymflow-app/gymflow/internal/authz"
	"github.com/gymflow-app/gymflow/internal/shared"
	"github.com/gymflow-app/gymflow/jobs"
)

var (
	// ErrBranchOutOfScope indicates the acting scope does not cover the
	// payment's branch. Reported identically for unknown branches.
	ErrBranchOutOfScope = errors.New("payments: branch outside acting scope")
	// ErrInvalidMethod indicates an unsupported payment method.
	ErrInvalidMethod = errors.New("payments: unsupported method")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("payments: amount must be positive")
	// ErrInvalidKind indicates an unknown ledger entry kind.
	ErrInvalidKind = errors.New("payments: unknown ledger kind")
)

// ReceiptQueue enqueues WhatsApp receipts after a payment is stored.
// *jobs.Client satisfies it.
type ReceiptQueue interface {
	EnqueueSendWhatsApp(ctx context.Context, payload jobs.SendWhatsAppPayload) (*asynq.TaskInfo, error)
}

// Service handles payment recording and ledger operations.
type Service struct {
	repo     Repository
	audit    *shared.AuditLogger
	receipts ReceiptQueue
	printer  *message.Printer
	now      func() time.Time
}

// NewService builds a Service instance. receipts may be nil when the job
// queue is not configured; payments still record, receipts are skipped.
func NewService(repo Repository, audit *shared.AuditLogger, receipts ReceiptQueue) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		receipts: receipts,
		printer:  message.NewPrinter(language.English),
		now:      time.Now,
	}
}

// RecordInput is the validated request to record a payment.
type RecordInput struct {
	MemberID       uuid.UUID
	SubscriptionID *uuid.UUID
	AmountCents    int64
	Method         string
	Note           string
	PaidAt         time.Time
}

// LedgerInput is the validated request to add a manual ledger line.
type LedgerInput struct {
	BranchID    uuid.UUID
	Kind        string
	Category    string
	AmountCents int64
	Description string
	OccurredAt  time.Time
}

// RecordPayment stores a payment against a member whose branch lies in
// the acting scope, writes the income ledger line, and queues a receipt.
func (s *Service) RecordPayment(ctx context.Context, decision authz.Decision, input RecordInput) (Payment, error) {
	if input.AmountCents <= 0 {
		return Payment{}, ErrInvalidAmount
	}
	switch input.Method {
	case MethodCash, MethodCard, MethodTransfer:
	default:
		return Payment{}, ErrInvalidMethod
	}

	ref, err := s.repo.MemberRef(ctx, input.MemberID)
	if err != nil {
		return Payment{}, err
	}
	if !decision.Scope.Contains(ref.BranchID) {
		// Same answer as for a member that does not exist.
		return Payment{}, ErrMemberNotFound
	}

	now := s.now().UTC()
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	p := Payment{
		ID:             uuid.New(),
		MemberID:       ref.ID,
		BranchID:       ref.BranchID,
		SubscriptionID: input.SubscriptionID,
		AmountCents:    input.AmountCents,
		Method:         input.Method,
		Note:           strings.TrimSpace(input.Note),
		RecordedBy:     decision.Actor.UserID,
		PaidAt:         paidAt,
		CreatedAt:      now,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return Payment{}, err
	}

	s.record(ctx, decision, p)
	s.queueReceipt(ctx, ref, p)
	return p, nil
}

// ListPayments returns payments visible to the decision.
func (s *Service) ListPayments(ctx context.Context, decision authz.Decision, branchID *uuid.UUID, from, to *time.Time, page, perPage int) ([]Payment, shared.Pagination, error) {
	if branchID != nil && !decision.Scope.Contains(*branchID) {
		return nil, shared.Pagination{}, authz.ErrBranchAccessDenied
	}
	list, total, err := s.repo.ListPayments(ctx, ListFilter{
		Scope: decision.Scope, BranchID: branchID, From: from, To: to, Page: page, PerPage: perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// AddLedgerEntry records a manual income or expense line for a branch in
// the acting scope.
func (s *Service) AddLedgerEntry(ctx context.Context, decision authz.Decision, input LedgerInput) (LedgerEntry, error) {
	if input.AmountCents <= 0 {
		return LedgerEntry{}, ErrInvalidAmount
	}
	if input.Kind != KindIncome && input.Kind != KindExpense {
		return LedgerEntry{}, ErrInvalidKind
	}
	if !decision.Scope.Contains(input.BranchID) {
		return LedgerEntry{}, ErrBranchOutOfScope
	}

	now := s.now().UTC()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	e := LedgerEntry{
		ID:          uuid.New(),
		BranchID:    input.BranchID,
		Kind:        input.Kind,
		Category:    strings.TrimSpace(input.Category),
		AmountCents: input.AmountCents,
		Description: strings.TrimSpace(input.Description),
		RecordedBy:  decision.Actor.UserID,
		OccurredAt:  occurredAt,
		CreatedAt:   now,
	}
	if err := s.repo.CreateLedgerEntry(ctx, e); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// ListLedger returns ledger lines visible to the decision.
func (s *Service) ListLedger(ctx context.Context, decision authz.Decision, branchID *uuid.UUID, from, to *time.Time, page, perPage int) ([]LedgerEntry, shared.Pagination, error) {
	if branchID != nil && !decision.Scope.Contains(*branchID) {
		return nil, shared.Pagination{}, authz.ErrBranchAccessDenied
	}
	list, total, err := s.repo.ListLedger(ctx, ListFilter{
		Scope: decision.Scope, BranchID: branchID, From: from, To: to, Page: page, PerPage: perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) queueReceipt(ctx context.Context, ref MemberRef, p Payment) {
	if s.receipts == nil || ref.Phone == "" {
		return
	}
	amount := s.printer.Sprintf("%.2f", float64(p.AmountCents)/100)
	msg := fmt.Sprintf("Hi %s, we received your %s payment of %s on %s. Thank you!",
		ref.FullName, p.Method, amount, p.PaidAt.Format("2 Jan 2006"))
	_, _ = s.receipts.EnqueueSendWhatsApp(ctx, jobs.SendWhatsAppPayload{Phone: ref.Phone, Message: msg})
}

func (s *Service) record(ctx context.Context, decision authz.Decision, p Payment) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  decision.Actor.UserID,
		Action:   shared.ActionPaymentRecorded,
		Entity:   "payment",
		EntityID: p.ID.String(),
		Meta: map[string]any{
			"member_id": p.MemberID.String(), "branch_id": p.BranchID.String(),
			"amount_cents": p.AmountCents, "method": p.Method,
		},
	})
}
