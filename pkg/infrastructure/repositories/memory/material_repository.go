package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

// MaterialRepository provides in-memory material master storage.
// Materials keep the order they were first loaded in.
type MaterialRepository struct {
	mu           sync.RWMutex
	materials    []entities.Material
	materialsMap map[entities.MaterialCode]int
}

// NewMaterialRepository creates a new in-memory material repository
func NewMaterialRepository(expectedMaterials int) *MaterialRepository {
	return &MaterialRepository{
		materials:    make([]entities.Material, 0, expectedMaterials),
		materialsMap: make(map[entities.MaterialCode]int, expectedMaterials),
	}
}

// Verify interface compliance
var _ repositories.MaterialRepository = (*MaterialRepository)(nil)

// LoadMaterials loads materials into the repository, replacing any with the same code
func (r *MaterialRepository) LoadMaterials(ctx context.Context, materials []*entities.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, material := range materials {
		if material == nil {
			continue
		}
		r.addMaterial(*material)
	}
	return nil
}

func (r *MaterialRepository) addMaterial(material entities.Material) {
	if index, exists := r.materialsMap[material.Code]; exists {
		r.materials[index] = material
		return
	}
	r.materialsMap[material.Code] = len(r.materials)
	r.materials = append(r.materials, material)
}

// GetMaterial returns the material for a code
func (r *MaterialRepository) GetMaterial(ctx context.Context, code entities.MaterialCode) (*entities.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.materialsMap[code]
	if !exists {
		return nil, fmt.Errorf("material %s: %w", code, repositories.ErrNotFound)
	}
	material := r.materials[index]
	return &material, nil
}

// GetMaterialByTallyCode looks a material up by its accounting code, ignoring case and surrounding spaces
func (r *MaterialRepository) GetMaterialByTallyCode(ctx context.Context, tallyCode string) (*entities.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := strings.TrimSpace(tallyCode)
	for _, material := range r.materials {
		if material.TallyCode != "" && strings.EqualFold(material.TallyCode, want) {
			found := material
			return &found, nil
		}
	}
	return nil, fmt.Errorf("tally code %s: %w", tallyCode, repositories.ErrNotFound)
}

// GetAllMaterials returns all materials in load order
func (r *MaterialRepository) GetAllMaterials(ctx context.Context) ([]*entities.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	materials := make([]*entities.Material, 0, len(r.materials))
	for i := range r.materials {
		material := r.materials[i]
		materials = append(materials, &material)
	}
	return materials, nil
}
