package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlanID string

const (
	PlanMonthly    PlanID = "MONTHLY"
	PlanQuarterly  PlanID = "QUARTERLY"
	PlanSemiannual PlanID = "SEMIANNUAL"
	PlanLifetime   PlanID = "LIFETIME"
)

// LifetimeMonths is the sentinel duration for the lifetime plan.
const LifetimeMonths = 1200

// Plan is an immutable catalog entry. Price uses decimal to avoid
// float rounding drift across renewals.
type Plan struct {
	ID             PlanID
	DurationMonths int
	Price          decimal.Decimal
	Description    string
}

// EndDate computes the expiration of a subscription starting at start.
// Calendar months, not fixed-length periods: Jan 15 + 1 month = Feb 15.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.DurationMonths, 0)
}
