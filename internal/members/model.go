// Package members manages gym member records and their subscriptions.
// Every read and write is constrained to the acting decision's branch
// scope.
package members

import (
	"time"

	"github.com/google/uuid"
)

// Member represents a gym member registered at one branch.
type Member struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription is a paid membership period.
type Subscription struct {
	ID         uuid.UUID `json:"id"`
	MemberID   uuid.UUID `json:"member_id"`
	Plan       string    `json:"plan"`
	PriceCents int64     `json:"price_cents"`
	StartsAt   time.Time `json:"starts_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the subscription has lapsed at the given time.
func (s Subscription) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}
