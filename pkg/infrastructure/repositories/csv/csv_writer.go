package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// WriteStock writes snapshot in the stock.csv layout, codes sorted
func WriteStock(w io.Writer, snapshot *entities.StockSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("stock snapshot cannot be nil")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(stockHeader); err != nil {
		return fmt.Errorf("failed to write stock header: %w", err)
	}
	for _, code := range snapshot.Codes() {
		if err := writer.Write([]string{string(code), snapshot.Quantity(code).String()}); err != nil {
			return fmt.Errorf("failed to write stock row for %s: %w", code, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStockFile writes snapshot to filename, replacing any existing file
func WriteStockFile(filename string, snapshot *entities.StockSnapshot) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create stock file %s: %w", filename, err)
	}
	if err := WriteStock(f, snapshot); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
