package repositories

import (
	"context"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// StockRepository stores named stock snapshots
type StockRepository interface {
	GetSnapshot(ctx context.Context, name string) (*entities.StockSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *entities.StockSnapshot) error
}
