// Package storage uploads plan exports to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the exporter needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// ExportKey is the object key of a plan export: plans/<stock inventory>/<run id>.<ext>
func ExportKey(stockInventory, runID, ext string) string {
	stock := strings.TrimSpace(stockInventory)
	if stock == "" {
		stock = "unassigned"
	}
	stock = strings.ReplaceAll(stock, "/", "-")
	return path.Join("plans", stock, fmt.Sprintf("%s.%s", runID, strings.TrimPrefix(ext, ".")))
}
