package storage

import (
	"context"

	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/farkhanisturkia/mapsReactGo/internal/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations applies all pending SQL migrations and verifies the schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log logging.Logger) error {
	if err := migrations.Run(ctx, pool, log); err != nil {
		return err
	}
	return migrations.CheckSchema(ctx, pool)
}
