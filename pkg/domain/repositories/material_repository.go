package repositories

import (
	"context"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// MaterialRepository provides access to the material master
type MaterialRepository interface {
	GetMaterial(ctx context.Context, code entities.MaterialCode) (*entities.Material, error)
	GetMaterialByTallyCode(ctx context.Context, tallyCode string) (*entities.Material, error)
	// GetAllMaterials returns materials in master order. The order drives
	// reorder emission order inside a run, so implementations must keep it stable.
	GetAllMaterials(ctx context.Context) ([]*entities.Material, error)
	LoadMaterials(ctx context.Context, materials []*entities.Material) error
}
