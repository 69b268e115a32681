package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds
// Credit kinds raise the balance, debit kinds lower it.
// Adjustment is a compensating credit: the ledger is append only, so
// corrections are recorded as new entries instead of deleting old ones.
const (
	KindAllocation  = "allocation"
	KindPurchase    = "purchase"
	KindConsumption = "consumption"
	KindExpiration  = "expiration"
	KindAdjustment  = "adjustment"
)

// IsCreditKind reports whether kind raises the account balance
func IsCreditKind(kind string) bool {
	switch kind {
	case KindAllocation, KindPurchase, KindAdjustment:
		return true
	}
	return false
}

// IsValidKind reports whether kind is one of the known transaction kinds
func IsValidKind(kind string) bool {
	switch kind {
	case KindAllocation, KindPurchase, KindConsumption, KindExpiration, KindAdjustment:
		return true
	}
	return false
}

// Transaction is a single immutable ledger entry
// Amount is always positive, the kind decides the sign.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	RecordedAt  time.Time
	Kind        string
	Amount      int64
	Description string
	Channel     *string
	PlanID      *string
}
