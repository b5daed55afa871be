package models

import (
	"time"

	"github.com/google/uuid"
)

// CodeKind distinguishes single-use deposit vouchers from the reusable
// unlimited coupon. Deposit codes are deactivated on consumption; unlimited
// codes never are.
type CodeKind string

const (
	CodeKindDeposit   CodeKind = "deposit"
	CodeKindUnlimited CodeKind = "unlimited"
)

type RedemptionCode struct {
	ID          uuid.UUID  `json:"id"`
	CodeHash    string     `json:"-"`
	CreditValue int64      `json:"credit_value"`
	Kind        CodeKind   `json:"kind"`
	Active      bool       `json:"active"`
	ConsumedAt  *time.Time `json:"consumed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
