// Package branches manages gym locations. A branch is the data-isolation
// partition: every operational row carries exactly one branch id.
package branches

import (
	"time"

	"github.com/google/uuid"
)

// Branch represents one physical gym location.
type Branch struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
