package models

import (
	"github.com/shopspring/decimal"
)

const (
	CycleMonthly = "monthly"
	CycleAnnual  = "annual"
)

// Plan is an immutable catalog entry
// Plans are reference data: they are not stored per account and never mutated.
type Plan struct {
	ID      string
	Name    string
	Segment string
	Credits int64
	Price   decimal.Decimal
	Cycle   string
}
