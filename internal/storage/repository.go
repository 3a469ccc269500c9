// Package storage persists the uploaded point set.
package storage

import (
	"context"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

// PointsRepository stores the single active point set served at /data.json.
type PointsRepository interface {
	// ReplacePoints atomically swaps the stored set for points, preserving
	// their order.
	ReplacePoints(ctx context.Context, points []geo.Point) error

	// ListPoints returns the stored set in upload order. An empty store
	// yields an empty, non-nil slice.
	ListPoints(ctx context.Context) ([]geo.Point, error)
}
