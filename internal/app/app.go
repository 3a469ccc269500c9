// Package app wires configuration, storage, routing and HTTP into a runnable
// service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/config"
	"github.com/farkhanisturkia/mapsReactGo/internal/handler"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/farkhanisturkia/mapsReactGo/internal/metrics"
	"github.com/farkhanisturkia/mapsReactGo/internal/middleware"
	"github.com/farkhanisturkia/mapsReactGo/internal/routing"
	"github.com/farkhanisturkia/mapsReactGo/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DBError represents a database-related error.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db error during %q: %v", e.Op, e.Err)
}

func (e *DBError) Unwrap() error { return e.Err }

// App holds the application-level dependencies.
type App struct {
	DB      *pgxpool.Pool // nil when running on the file store
	Router  *gin.Engine
	Metrics *metrics.Collector

	log        logging.Logger
	stopPurger context.CancelFunc
}

// New initializes the service. With DB_DSN set it connects to Postgres,
// runs migrations and uses the database for points and the route cache;
// otherwise points live in DATA_FILE and routes are cached in memory.
func New(cfg *config.Config, log logging.Logger) (*App, error) {
	collector, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	var (
		pool       *pgxpool.Pool
		pointsRepo storage.PointsRepository
		cacheStore routing.CacheStore
	)

	if cfg.DBDSN != "" {
		pool, err = connect(cfg.DBDSN, log)
		if err != nil {
			return nil, err
		}
		if err := storage.RunMigrations(context.Background(), pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: run migrations: %w", err)
		}
		pointsRepo = storage.NewPointsRepository(pool)
		cacheStore = routing.NewPgCacheStore(pool)
	} else {
		log.Info(context.Background(), "using file store", logging.String("path", cfg.DataFile))
		pointsRepo = storage.NewFileRepository(cfg.DataFile)
		cacheStore = routing.NewMemoryCacheStore()
	}

	purgeCtx, stopPurger := context.WithCancel(context.Background())
	go routing.RunPurger(purgeCtx, cacheStore, 0, log)

	planner := routing.NewCachedPlanner(
		routing.NewNearestNeighbour(),
		cacheStore,
		routing.WithLogger(log),
		routing.WithRecorder(collector),
	)

	h := handler.New(planner, pointsRepo,
		handler.WithLogger(log),
		handler.WithUploadRecorder(collector),
		handler.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	return &App{
		DB:         pool,
		Router:     newEngine(h, collector, log, cfg.RequestTimeout),
		Metrics:    collector,
		log:        log,
		stopPurger: stopPurger,
	}, nil
}

func connect(dsn string, log logging.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &DBError{Op: "parse_dsn", Err: err}
	}

	poolCfg.MaxConns = 20
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &DBError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &DBError{Op: "ping", Err: err}
	}

	log.Info(ctx, "database connection pool established")
	return pool, nil
}

// newEngine builds the gin engine. It is separate from New so tests can
// build it around stub dependencies.
func newEngine(h *handler.Handler, collector *metrics.Collector, log logging.Logger, timeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log, collector))
	router.Use(middleware.Recovery(log))
	router.Use(cors.Default())
	router.Use(middleware.Timeout(timeout, log, collector))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	h.Register(router)
	return router
}

// Shutdown stops the cache purger and closes the database pool, if any.
func (a *App) Shutdown() {
	if a.stopPurger != nil {
		a.stopPurger()
	}
	if a.DB != nil {
		a.DB.Close()
		a.log.Info(context.Background(), "database connection pool closed")
	}
}
