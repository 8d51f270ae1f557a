package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

// StockRepository keeps named stock snapshots in memory
type StockRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*entities.StockSnapshot
}

func NewStockRepository() *StockRepository {
	return &StockRepository{snapshots: make(map[string]*entities.StockSnapshot)}
}

var _ repositories.StockRepository = (*StockRepository)(nil)

// SaveSnapshot stores snapshot under its name. Snapshots are immutable, so no copy is taken.
func (r *StockRepository) SaveSnapshot(ctx context.Context, snapshot *entities.StockSnapshot) error {
	if snapshot == nil || snapshot.Name == "" {
		return fmt.Errorf("stock snapshot must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.Name] = snapshot
	return nil
}

func (r *StockRepository) GetSnapshot(ctx context.Context, name string) (*entities.StockSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[name]
	if !ok {
		return nil, fmt.Errorf("stock snapshot %s: %w", name, repositories.ErrNotFound)
	}
	return snapshot, nil
}
