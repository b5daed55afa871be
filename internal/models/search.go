package models

import (
	"time"

	"github.com/google/uuid"
)

// FailedSearch is an append-only audit record of a billable lookup that
// returned no result. AccessHash is a weak reference: it is never joined
// back to accounts and may be nil for sessions without one.
type FailedSearch struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	AccessHash *string   `json:"access_hash,omitempty"`
	SearchedAt time.Time `json:"searched_at"`
}
