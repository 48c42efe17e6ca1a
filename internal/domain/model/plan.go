package model

import (
	"sort"
	"time"

	"storefront-automation/internal/domain"
)

type PlanID string

const (
	PlanStarter    PlanID = "starter"
	PlanStandard   PlanID = "standard"
	PlanGrowth     PlanID = "growth"
	PlanEnterprise PlanID = "enterprise"
)

// Plan is a purchasable subscription tier: how many stores it includes and
// what it costs monthly/yearly, plus the price of one extra store slot.
type Plan struct {
	ID                    PlanID    `json:"id"`
	Name                  string    `json:"name"`
	IncludedStores        int       `json:"includedStores"`
	MonthlyPriceCents     int64     `json:"monthlyPriceCents"`
	YearlyPriceCents      int64     `json:"yearlyPriceCents"`
	YearlyDiscountPercent int       `json:"yearlyDiscountPercent"`
	ExtraStorePriceCents  int64     `json:"extraStorePriceCents"`
	CreatedAt             time.Time `json:"-"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// defaultPlans is the fixed catalog. A remote pricing source may override
// rows, but quota decisions must never block on that source being up, so
// these values are always available in-process.
var defaultPlans = map[PlanID]Plan{
	PlanStarter: {
		ID: PlanStarter, Name: "Starter",
		IncludedStores:    1,
		MonthlyPriceCents: 2900, YearlyPriceCents: 27840, YearlyDiscountPercent: 20,
		ExtraStorePriceCents: 1900,
	},
	PlanStandard: {
		ID: PlanStandard, Name: "Standard",
		IncludedStores:    4,
		MonthlyPriceCents: 7900, YearlyPriceCents: 75840, YearlyDiscountPercent: 20,
		ExtraStorePriceCents: 1500,
	},
	PlanGrowth: {
		ID: PlanGrowth, Name: "Growth",
		IncludedStores:    8,
		MonthlyPriceCents: 14900, YearlyPriceCents: 143040, YearlyDiscountPercent: 20,
		ExtraStorePriceCents: 1200,
	},
	PlanEnterprise: {
		ID: PlanEnterprise, Name: "Enterprise",
		IncludedStores:    20,
		MonthlyPriceCents: 29900, YearlyPriceCents: 287040, YearlyDiscountPercent: 20,
		ExtraStorePriceCents: 900,
	},
}

// DefaultPlan returns the built-in definition for id.
func DefaultPlan(id PlanID) (*Plan, error) {
	p, ok := defaultPlans[id]
	if !ok {
		return nil, domain.ErrUnknownPlan
	}
	cp := p
	return &cp, nil
}

// DefaultPlans returns the full built-in catalog sorted ascending by capacity.
func DefaultPlans() []*Plan {
	out := make([]*Plan, 0, len(defaultPlans))
	for id := range defaultPlans {
		cp := defaultPlans[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncludedStores < out[j].IncludedStores })
	return out
}

// ValidPlanID reports whether id is one of the fixed enumeration.
func ValidPlanID(id PlanID) bool {
	_, ok := defaultPlans[id]
	return ok
}
