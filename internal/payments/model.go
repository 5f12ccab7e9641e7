// Package payments records member payments and the branch ledger. A
// recorded payment always produces a matching income ledger entry in the
// same transaction.
package payments

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods accepted at the front desk.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
)

// Ledger entry kinds.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Payment is money received from a member.
type Payment struct {
	ID             uuid.UUID  `json:"id"`
	MemberID       uuid.UUID  `json:"member_id"`
	BranchID       uuid.UUID  `json:"branch_id"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	Method         string     `json:"method"`
	Note           string     `json:"note,omitempty"`
	RecordedBy     int64      `json:"recorded_by"`
	PaidAt         time.Time  `json:"paid_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LedgerEntry is one income or expense line for a branch.
type LedgerEntry struct {
	ID          uuid.UUID  `json:"id"`
	BranchID    uuid.UUID  `json:"branch_id"`
	Kind        string     `json:"kind"`
	Category    string     `json:"category"`
	AmountCents int64      `json:"amount_cents"`
	Description string     `json:"description,omitempty"`
	PaymentID   *uuid.UUID `json:"payment_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
	CreatedAt   time.Time  `json:"created_at"`
	RecordedBy  int64      `json:"recorded_by"`
}
