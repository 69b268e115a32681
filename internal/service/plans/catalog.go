package plans

import (
	"github.com/shopspring/decimal"

	"github.com/reputalia/creditos/internal/apperrors"
	"github.com/reputalia/creditos/internal/models"
)

// Catalog is the static plan table.
// Plans are reference data shipped with the binary: there is no admin
// mutation path, a price change is a deploy.
type Catalog struct {
	plans   []models.Plan
	byID    map[string]models.Plan
	ordered map[string][]models.Plan
}

func price(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

var defaultPlans = []models.Plan{
	{ID: "basico", Name: "Básico", Segment: models.SegmentIndividual, Credits: 5000, Price: price("49.90"), Cycle: models.CycleMonthly},
	{ID: "profissional", Name: "Profissional", Segment: models.SegmentIndividual, Credits: 15000, Price: price("99.90"), Cycle: models.CycleMonthly},
	{ID: "premium", Name: "Premium", Segment: models.SegmentIndividual, Credits: 40000, Price: price("199.90"), Cycle: models.CycleMonthly},
	{ID: "premium-anual", Name: "Premium Anual", Segment: models.SegmentIndividual, Credits: 480000, Price: price("1990.00"), Cycle: models.CycleAnnual},
	{ID: "agencia-start", Name: "Agência Start", Segment: models.SegmentAgency, Credits: 100000, Price: price("499.90"), Cycle: models.CycleMonthly},
	{ID: "agencia-pro", Name: "Agência Pro", Segment: models.SegmentAgency, Credits: 250000, Price: price("999.90"), Cycle: models.CycleMonthly},
	{ID: "agencia-anual", Name: "Agência Anual", Segment: models.SegmentAgency, Credits: 3000000, Price: price("9990.00"), Cycle: models.CycleAnnual},
}

// NewCatalog builds the default catalog
func NewCatalog() *Catalog {
	return NewCatalogWithPlans(defaultPlans)
}

// NewCatalogWithPlans builds a catalog over the given plans keeping their order
func NewCatalogWithPlans(plans []models.Plan) *Catalog {
	c := &Catalog{
		plans:   plans,
		byID:    make(map[string]models.Plan, len(plans)),
		ordered: make(map[string][]models.Plan),
	}

	for _, p := range plans {
		c.byID[p.ID] = p
		c.ordered[p.Segment] = append(c.ordered[p.Segment], p)
	}

	return c
}

// List returns the plans of the segment in catalog order
func (c *Catalog) List(segment string) ([]models.Plan, error) {
	switch segment {
	case models.SegmentIndividual, models.SegmentAgency:
		return c.ordered[segment], nil
	default:
		return nil, apperrors.ErrUnknownSegment
	}
}

// Resolve returns the plan by id
func (c *Catalog) Resolve(planID string) (models.Plan, error) {
	plan, ok := c.byID[planID]
	if !ok {
		return plan, apperrors.ErrUnknownPlan
	}

	return plan, nil
}
