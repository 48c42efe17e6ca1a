package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// CatalogUseCase is the single source of truth for plan capacity and
// pricing. A remote pricing source (the plan repository) may override rows;
// any failure there falls back to the fixed in-code defaults so quota
// decisions never block on an external service.
type CatalogUseCase struct {
	repo repository.PlanRepository // optional remote override
	log  *zerolog.Logger
}

func NewCatalogUseCase(repo repository.PlanRepository, logger *zerolog.Logger) *CatalogUseCase {
	catLog := logger.With().Str("component", "CatalogUseCase").Logger()
	return &CatalogUseCase{repo: repo, log: &catLog}
}

// Lookup resolves a plan identifier to its capacity and pricing. Fails only
// with ErrUnknownPlan when the identifier is outside the fixed enumeration.
func (uc *CatalogUseCase) Lookup(ctx context.Context, id model.PlanID) (*model.Plan, error) {
	if !model.ValidPlanID(id) {
		return nil, domain.ErrUnknownPlan
	}
	if uc.repo != nil {
		p, err := uc.repo.FindByID(ctx, repository.NoTX, string(id))
		if err == nil && !p.IsZero() {
			return p, nil
		}
		if err != nil && err != domain.ErrNotFound {
			uc.log.Warn().Err(err).Str("plan", string(id)).Msg("remote pricing lookup failed; using defaults")
		}
	}
	return model.DefaultPlan(id)
}

// List returns the whole catalog, remote rows overriding defaults, sorted
// ascending by included store count.
func (uc *CatalogUseCase) List(ctx context.Context) []*model.Plan {
	byID := make(map[model.PlanID]*model.Plan, 4)
	for _, p := range model.DefaultPlans() {
		byID[p.ID] = p
	}
	if uc.repo != nil {
		remote, err := uc.repo.ListAll(ctx, repository.NoTX)
		if err != nil {
			uc.log.Warn().Err(err).Msg("remote pricing list failed; using defaults")
		} else {
			for _, p := range remote {
				if model.ValidPlanID(p.ID) {
					byID[p.ID] = p
				}
			}
		}
	}
	out := make([]*model.Plan, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncludedStores < out[j].IncludedStores })
	return out
}

// UpgradeOptionsFrom lists every plan with more included stores than
// current, ascending by capacity. Offered even while slots remain.
func (uc *CatalogUseCase) UpgradeOptionsFrom(ctx context.Context, current *model.Plan) []model.UpgradeOption {
	var opts []model.UpgradeOption
	for _, p := range uc.List(ctx) {
		if current != nil && p.IncludedStores <= current.IncludedStores {
			continue
		}
		if current != nil && p.ID == current.ID {
			continue
		}
		opts = append(opts, model.UpgradeOption{
			Plan:              p.ID,
			IncludedStores:    p.IncludedStores,
			MonthlyPriceCents: p.MonthlyPriceCents,
		})
	}
	return opts
}
