package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

// FormulationRepository provides in-memory formulation master storage
type FormulationRepository struct {
	mu           sync.RWMutex
	order        []entities.FormulationID
	formulations map[entities.FormulationID]entities.Formulation
}

// NewFormulationRepository creates a new in-memory formulation repository
func NewFormulationRepository() *FormulationRepository {
	return &FormulationRepository{
		formulations: make(map[entities.FormulationID]entities.Formulation),
	}
}

var _ repositories.FormulationRepository = (*FormulationRepository)(nil)

// LoadFormulations stores copies of formulations, replacing any with the same id
func (r *FormulationRepository) LoadFormulations(ctx context.Context, formulations []*entities.Formulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range formulations {
		if f == nil {
			continue
		}
		if _, exists := r.formulations[f.ID]; !exists {
			r.order = append(r.order, f.ID)
		}
		r.formulations[f.ID] = copyFormulation(*f)
	}
	return nil
}

func (r *FormulationRepository) GetFormulation(ctx context.Context, id entities.FormulationID) (*entities.Formulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.formulations[id]
	if !exists {
		return nil, fmt.Errorf("formulation %s: %w", id, repositories.ErrNotFound)
	}
	copied := copyFormulation(f)
	return &copied, nil
}

func (r *FormulationRepository) GetAllFormulations(ctx context.Context) ([]*entities.Formulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Formulation, 0, len(r.order))
	for _, id := range r.order {
		copied := copyFormulation(r.formulations[id])
		out = append(out, &copied)
	}
	return out, nil
}

func copyFormulation(f entities.Formulation) entities.Formulation {
	f.Ratios = append([]entities.FormulationRatio(nil), f.Ratios...)
	return f
}
