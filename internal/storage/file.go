package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

// fileRepository keeps the point set as an indented JSON array on disk, the
// same document GET /data.json serves.
type fileRepository struct {
	mu   sync.RWMutex
	path string
}

// NewFileRepository creates a PointsRepository backed by the JSON file at
// path. The file and its directory are created on the first write.
func NewFileRepository(path string) PointsRepository {
	return &fileRepository{path: path}
}

// ReplacePoints writes to a temp file in the same directory and renames it
// over the old one, so readers never observe a partial document.
func (r *fileRepository) ReplacePoints(_ context.Context, points []geo.Point) error {
	if points == nil {
		points = []geo.Point{}
	}
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: ReplacePoints: encode: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: ReplacePoints: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".points-*.json")
	if err != nil {
		return fmt.Errorf("storage: ReplacePoints: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: ReplacePoints: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: ReplacePoints: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("storage: ReplacePoints: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("storage: ReplacePoints: rename: %w", err)
	}
	return nil
}

// ListPoints reads the file. A missing file is an empty set.
func (r *fileRepository) ListPoints(_ context.Context) ([]geo.Point, error) {
	r.mu.RLock()
	data, err := os.ReadFile(r.path)
	r.mu.RUnlock()

	if errors.Is(err, fs.ErrNotExist) {
		return []geo.Point{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: ListPoints: %w", err)
	}

	points := []geo.Point{}
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("storage: ListPoints: decode %s: %w", r.path, err)
	}
	return points, nil
}
