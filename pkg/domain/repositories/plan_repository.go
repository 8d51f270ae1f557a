package repositories

import (
	"context"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// PlanRepository stores production plans
type PlanRepository interface {
	SavePlan(ctx context.Context, plan *entities.ProductionPlan) error
	GetPlan(ctx context.Context, name string) (*entities.ProductionPlan, error)
	// LatestPlan returns the most recently created plan drawn against stockInventory,
	// or ErrNotFound when there is none.
	LatestPlan(ctx context.Context, stockInventory string) (*entities.ProductionPlan, error)
}
