package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
	"gamescorer/internal/scoring"
)

// CSVFile writes scored games to Path. The file is replaced atomically so readers
// never observe a partial export.
type CSVFile struct {
	Path string
}

var _ ports.ScoreExporter = (*CSVFile)(nil)

// NewCSVFile returns an exporter targeting path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path}
}

// Export writes games in the order given and returns the absolute file path.
func (c *CSVFile) Export(ctx context.Context, games []domain.ScoredGame) (string, error) {
	if c.Path == "" {
		return "", errors.New("export path is empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := filepath.Abs(c.Path)
	if err != nil {
		return "", fmt.Errorf("resolve export path: %w", err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp export: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := scoring.WriteCSV(tmp, games); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("chmod export: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("replace export: %w", err)
	}
	return target, nil
}
