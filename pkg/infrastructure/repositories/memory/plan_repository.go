package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

// PlanRepository keeps production plans in memory, in save order
type PlanRepository struct {
	mu    sync.RWMutex
	plans []entities.ProductionPlan
	index map[string]int
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{index: make(map[string]int)}
}

var _ repositories.PlanRepository = (*PlanRepository)(nil)

// SavePlan stores a copy of plan, replacing an existing plan of the same name
func (r *PlanRepository) SavePlan(ctx context.Context, plan *entities.ProductionPlan) error {
	if plan == nil || plan.Name == "" {
		return fmt.Errorf("production plan must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := copyPlan(*plan)
	if i, ok := r.index[plan.Name]; ok {
		r.plans[i] = copied
		return nil
	}
	r.index[plan.Name] = len(r.plans)
	r.plans = append(r.plans, copied)
	return nil
}

func (r *PlanRepository) GetPlan(ctx context.Context, name string) (*entities.ProductionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", name, repositories.ErrNotFound)
	}
	copied := copyPlan(r.plans[i])
	return &copied, nil
}

// LatestPlan returns the plan with the latest CreatedAt for stockInventory; ties go to the last saved
func (r *PlanRepository) LatestPlan(ctx context.Context, stockInventory string) (*entities.ProductionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *entities.ProductionPlan
	for i := range r.plans {
		p := &r.plans[i]
		if p.StockInventory != stockInventory {
			continue
		}
		if latest == nil || !p.CreatedAt.Before(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("plan for stock %s: %w", stockInventory, repositories.ErrNotFound)
	}
	copied := copyPlan(*latest)
	return &copied, nil
}

func copyPlan(p entities.ProductionPlan) entities.ProductionPlan {
	p.Batches = append([]entities.Batch(nil), p.Batches...)
	return p
}
