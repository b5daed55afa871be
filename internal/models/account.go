package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the entitlement level of an account or session.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierUnlimited Tier = "unlimited"
)

type Account struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	AccessHash    string    `json:"access_hash"`
	CreditBalance int64     `json:"credit_balance"`
	Tier          Tier      `json:"tier"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
