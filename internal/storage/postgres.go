package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryTimeout is applied to every database query.
const queryTimeout = 5 * time.Second

var pointColumns = []string{"position", "name", "lat", "lng", "batch_id"}

// pgPointsRepository is the pgx-backed implementation of PointsRepository.
type pgPointsRepository struct {
	pool *pgxpool.Pool
}

// NewPointsRepository creates a PointsRepository backed by the given pool.
func NewPointsRepository(pool *pgxpool.Pool) PointsRepository {
	return &pgPointsRepository{pool: pool}
}

// ReplacePoints deletes the previous set and bulk-loads the new one in a
// single transaction. Every row of one upload shares a batch ID.
func (r *pgPointsRepository) ReplacePoints(ctx context.Context, points []geo.Point) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: ReplacePoints: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM points`); err != nil {
		return fmt.Errorf("storage: ReplacePoints: delete: %w", err)
	}

	rows := pointRows(uuid.New(), points)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"points"}, pointColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("storage: ReplacePoints: copy: %w", err)
	}
	if int(n) != len(points) {
		return fmt.Errorf("storage: ReplacePoints: copied %d of %d rows", n, len(points))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: ReplacePoints: commit: %w", err)
	}
	return nil
}

// ListPoints returns the stored points ordered by upload position.
func (r *pgPointsRepository) ListPoints(ctx context.Context) ([]geo.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT name, lat, lng FROM points ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage: ListPoints: %w", err)
	}

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (geo.Point, error) {
		var p geo.Point
		err := row.Scan(&p.Name, &p.Lat, &p.Lng)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: ListPoints: scan: %w", err)
	}
	if points == nil {
		points = []geo.Point{}
	}
	return points, nil
}

// pointRows lays points out in pointColumns order for CopyFrom.
func pointRows(batch uuid.UUID, points []geo.Point) [][]any {
	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{int32(i), p.Name, p.Lat, p.Lng, batch}
	}
	return rows
}
