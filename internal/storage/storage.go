package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

// ResultWriter writes the records of a run as a single JSON array.
type ResultWriter struct {
	dir string
}

func NewResultWriter(dir string) *ResultWriter {
	if dir == "" {
		dir = "."
	}
	return &ResultWriter{dir: dir}
}

// FileName returns products-<unix millis>.json for the given completion time.
func FileName(completedAt time.Time) string {
	return fmt.Sprintf("products-%d.json", completedAt.UnixMilli())
}

func (w *ResultWriter) Write(completedAt time.Time, records []models.ProductRecord) (string, error) {
	if records == nil {
		records = []models.ProductRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to marshal products: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %q: %w", w.dir, err)
	}

	filename := filepath.Join(w.dir, FileName(completedAt))

	// Write to temp file first for atomicity
	tmpFile := filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}

	if err := os.Rename(tmpFile, filename); err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to rename %s: %w", tmpFile, err)
	}

	return filename, nil
}
