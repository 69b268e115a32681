package models

import (
	"github.com/google/uuid"
)

// Balance is the materialized projection of an account ledger.
// Current is kept >= 0 at all times, Granted sums every credit kind ever
// recorded and Spent sums consumptions only.
type Balance struct {
	AccountID uuid.UUID
	Current   int64
	Granted   int64
	Spent     int64
}

// ExpirableCredit is the expirable remainder of old grants for one account
type ExpirableCredit struct {
	AccountID uuid.UUID
	Amount    int64
}

// Alert levels the threshold notifier may classify a balance into
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertLow      AlertLevel = "low"
	AlertCritical AlertLevel = "critical"
)
