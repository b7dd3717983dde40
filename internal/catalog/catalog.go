package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"vipclub-bot/internal/models"
)

// ErrUnknownPlan is returned when a plan id does not resolve.
var ErrUnknownPlan = errors.New("unknown plan")

// Catalog is the static table of purchasable plans. Built once at startup
// and passed to collaborators; entries are never mutated.
type Catalog struct {
	plans map[models.PlanID]models.Plan
}

func New() *Catalog {
	plans := map[models.PlanID]models.Plan{
		models.PlanMonthly: {
			ID:             models.PlanMonthly,
			DurationMonths: 1,
			Price:          decimal.RequireFromString("14.90"),
			Description:    "Plano Mensal",
		},
		models.PlanQuarterly: {
			ID:             models.PlanQuarterly,
			DurationMonths: 3,
			Price:          decimal.RequireFromString("24.90"),
			Description:    "Plano Trimestral",
		},
		models.PlanSemiannual: {
			ID:             models.PlanSemiannual,
			DurationMonths: 6,
			Price:          decimal.RequireFromString("39.90"),
			Description:    "Plano Semestral",
		},
		models.PlanLifetime: {
			ID:             models.PlanLifetime,
			DurationMonths: models.LifetimeMonths,
			Price:          decimal.RequireFromString("59.90"),
			Description:    "Plano Vitalício",
		},
	}
	return &Catalog{plans: plans}
}

// Resolve looks up a plan by id.
func (c *Catalog) Resolve(id models.PlanID) (models.Plan, error) {
	plan, ok := c.plans[id]
	if !ok {
		return models.Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	return plan, nil
}

// All returns every plan in display order.
func (c *Catalog) All() []models.Plan {
	order := []models.PlanID{
		models.PlanMonthly,
		models.PlanQuarterly,
		models.PlanSemiannual,
		models.PlanLifetime,
	}
	out := make([]models.Plan, 0, len(order))
	for _, id := range order {
		out = append(out, c.plans[id])
	}
	return out
}
