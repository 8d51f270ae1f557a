package repositories

import (
	"context"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// FormulationRepository provides access to the formulation master
type FormulationRepository interface {
	GetFormulation(ctx context.Context, id entities.FormulationID) (*entities.Formulation, error)
	GetAllFormulations(ctx context.Context) ([]*entities.Formulation, error)
	LoadFormulations(ctx context.Context, formulations []*entities.Formulation) error
}
