package storage

import (
	"context"
	"testing"

	"github.com/vsinha/batchplan/pkg/config"
)

func TestExportKey(t *testing.T) {
	tests := []struct {
		stock string
		runID string
		ext   string
		want  string
	}{
		{"STOCK-2025-01", "run-1", "csv", "plans/STOCK-2025-01/run-1.csv"},
		{"", "run-2", ".json", "plans/unassigned/run-2.json"},
		{"MPD/JAN", "run-3", "csv", "plans/MPD-JAN/run-3.csv"},
	}

	for _, tt := range tests {
		if got := ExportKey(tt.stock, tt.runID, tt.ext); got != tt.want {
			t.Errorf("ExportKey(%q, %q, %q): expected %s, got %s", tt.stock, tt.runID, tt.ext, tt.want, got)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"minio.internal:9000", true, "minio.internal:9000", true},
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
	}

	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.endpoint, tt.useSSL)
		if host != tt.wantHost || secure != tt.wantSecure {
			t.Errorf("normalizeEndpoint(%q, %v): expected %s/%v, got %s/%v",
				tt.endpoint, tt.useSSL, tt.wantHost, tt.wantSecure, host, secure)
		}
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr string
	}{
		{"no endpoint", config.StorageConfig{}, "storage endpoint must be provided"},
		{"no credentials", config.StorageConfig{Endpoint: "localhost:9000"}, "storage credentials must be provided"},
		{"no bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "storage bucket must be provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioClient(context.Background(), tt.cfg)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Expected error '%s', got %v", tt.wantErr, err)
			}
		})
	}
}
