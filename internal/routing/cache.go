package routing

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"
)

const (
	// cacheTTL is how long a cached route remains valid.
	cacheTTL = 10 * time.Minute

	// cacheQueryTimeout is the deadline for each cache read/write.
	cacheQueryTimeout = 5 * time.Second

	// geohashPrecision 7 is a cell of roughly 150m. Origins inside one cell
	// share a cached visiting order for the same point set.
	geohashPrecision = 7

	// purgeInterval is how often RunPurger clears expired entries.
	purgeInterval = 5 * time.Minute
)

// CacheKey identifies one cached route.
type CacheKey struct {
	OriginHash  string // geohash cell of the current position
	Fingerprint string // hash of current's name and the ordered point set
}

func (k CacheKey) String() string { return k.OriginHash + "|" + k.Fingerprint }

// CacheStore persists planned routes.
type CacheStore interface {
	// GetCachedRoute returns the route stored under key, or (nil, nil) when
	// there is no valid entry.
	GetCachedRoute(ctx context.Context, key CacheKey) ([]geo.Point, error)

	// SetCachedRoute upserts a route with an expiry of now + cacheTTL.
	SetCachedRoute(ctx context.Context, key CacheKey, route []geo.Point) error

	// PurgeExpired removes every expired entry and reports how many went.
	PurgeExpired(ctx context.Context) (int64, error)
}

// CachedPlanner wraps another Planner and caches its routes.
type CachedPlanner struct {
	inner      Planner
	store      CacheStore
	log        logging.Logger
	recorder   CacheRecorder
	afterStore func() // test hook run after every async store attempt
}

// CacheRecorder observes cache lookups.
type CacheRecorder interface {
	CacheLookup(hit bool)
}

// CachedPlannerOption configures a CachedPlanner.
type CachedPlannerOption func(*CachedPlanner)

// WithLogger sets the logger used to report cache failures.
func WithLogger(l logging.Logger) CachedPlannerOption {
	return func(p *CachedPlanner) { p.log = l }
}

// WithRecorder reports every lookup to r.
func WithRecorder(r CacheRecorder) CachedPlannerOption {
	return func(p *CachedPlanner) { p.recorder = r }
}

func withAfterStore(fn func()) CachedPlannerOption {
	return func(p *CachedPlanner) { p.afterStore = fn }
}

// NewCachedPlanner wraps inner with a cache-aside layer backed by store.
func NewCachedPlanner(inner Planner, store CacheStore, opts ...CachedPlannerOption) *CachedPlanner {
	p := &CachedPlanner{inner: inner, store: store, log: logging.Noop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan satisfies Planner. Cache failures are logged and never fail the call.
func (p *CachedPlanner) Plan(ctx context.Context, current geo.Point, points []geo.Point) ([]geo.Point, error) {
	key := cacheKey(current, points)

	cached, err := p.store.GetCachedRoute(ctx, key)
	if err != nil {
		p.log.Warn(ctx, "route cache read failed", logging.String("key", key.String()), logging.Err(err))
	}
	if p.recorder != nil {
		p.recorder.CacheLookup(cached != nil)
	}
	if len(cached) > 0 {
		return withOrigin(cached, current), nil
	}

	route, err := p.inner.Plan(ctx, current, points)
	if err != nil {
		return nil, err
	}

	// The write outlives the request, so it runs on its own context.
	go func() {
		storeCtx, cancel := context.WithTimeout(context.Background(), cacheQueryTimeout)
		defer cancel()

		if err := p.store.SetCachedRoute(storeCtx, key, route); err != nil {
			p.log.Warn(storeCtx, "route cache write failed", logging.String("key", key.String()), logging.Err(err))
		}
		if p.afterStore != nil {
			p.afterStore()
		}
	}()

	return route, nil
}

// withOrigin returns a copy of a cached route that starts at the caller's
// exact position rather than the one it was planned from.
func withOrigin(route []geo.Point, current geo.Point) []geo.Point {
	out := make([]geo.Point, len(route))
	copy(out, route)
	out[0] = current
	return out
}

// cacheKey pairs the origin's geohash cell with a fingerprint of the point
// set. Only current's name enters the fingerprint: it decides which points
// get skipped, while its exact coordinates are left to the cell.
func cacheKey(current geo.Point, points []geo.Point) CacheKey {
	d := xxhash.New()
	_, _ = d.WriteString(current.Name)
	_, _ = d.Write([]byte{0})
	for _, pt := range points {
		writePoint(d, pt)
	}
	return CacheKey{
		OriginHash:  geohash.EncodeWithPrecision(current.Lat, current.Lng, geohashPrecision),
		Fingerprint: strconv.FormatUint(d.Sum64(), 16),
	}
}

func writePoint(d *xxhash.Digest, p geo.Point) {
	var buf [16]byte
	_, _ = d.WriteString(p.Name)
	_, _ = d.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(p.Lat))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Lng))
	_, _ = d.Write(buf[:])
}

// --- in-memory CacheStore ---

type memEntry struct {
	route     []geo.Point
	expiresAt time.Time
}

// MemoryCacheStore is a CacheStore kept in process memory.
type MemoryCacheStore struct {
	mu      sync.Mutex
	entries map[CacheKey]memEntry
	now     func() time.Time
}

// NewMemoryCacheStore creates an empty in-memory cache.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{entries: make(map[CacheKey]memEntry), now: time.Now}
}

func (m *MemoryCacheStore) GetCachedRoute(_ context.Context, key CacheKey) ([]geo.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	return e.route, nil
}

// SetCachedRoute stores route and sweeps expired entries, so the map stays
// bounded by what was written within the last cacheTTL.
func (m *MemoryCacheStore) SetCachedRoute(_ context.Context, key CacheKey, route []geo.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)
	m.entries[key] = memEntry{route: route, expiresAt: now.Add(cacheTTL)}
	return nil
}

func (m *MemoryCacheStore) PurgeExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now()), nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryCacheStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCacheStore) sweepLocked(now time.Time) int64 {
	var n int64
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// --- pgx-backed CacheStore ---

type pgCacheStore struct {
	pool *pgxpool.Pool
}

// NewPgCacheStore creates a CacheStore backed by the route_cache table.
func NewPgCacheStore(pool *pgxpool.Pool) CacheStore {
	return &pgCacheStore{pool: pool}
}

// GetCachedRoute queries route_cache for a valid (non-expired) entry.
func (s *pgCacheStore) GetCachedRoute(ctx context.Context, key CacheKey) ([]geo.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	const q = `
		SELECT route
		FROM route_cache
		WHERE origin_hash = $1
		  AND fingerprint = $2
		  AND expires_at  > NOW()`

	var raw []byte
	err := s.pool.QueryRow(ctx, q, key.OriginHash, key.Fingerprint).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("routing: cache: get: %w", err)
	}

	var route []geo.Point
	if err := json.Unmarshal(raw, &route); err != nil {
		return nil, fmt.Errorf("routing: cache: decode %s: %w", key, err)
	}
	return route, nil
}

// SetCachedRoute upserts a route into route_cache. The expiry is computed in
// Go so cacheTTL is the single source of truth.
func (s *pgCacheStore) SetCachedRoute(ctx context.Context, key CacheKey, route []geo.Point) error {
	ctx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("routing: cache: encode %s: %w", key, err)
	}

	const q = `
		INSERT INTO route_cache (origin_hash, fingerprint, route, calc_ts, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (origin_hash, fingerprint)
		DO UPDATE SET
			route      = EXCLUDED.route,
			calc_ts    = EXCLUDED.calc_ts,
			expires_at = EXCLUDED.expires_at`

	if _, err := s.pool.Exec(ctx, q, key.OriginHash, key.Fingerprint, raw, time.Now().Add(cacheTTL)); err != nil {
		return fmt.Errorf("routing: cache: set: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows from route_cache.
func (s *pgCacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM route_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("routing: cache: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunPurger calls store.PurgeExpired every interval until ctx is done. A
// non-positive interval uses purgeInterval.
func RunPurger(ctx context.Context, store CacheStore, interval time.Duration, log logging.Logger) {
	if interval <= 0 {
		interval = purgeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn(ctx, "route cache purge failed", logging.Err(err))
				continue
			}
			if n > 0 {
				log.Debug(ctx, "route cache purged", logging.Int("entries", int(n)))
			}
		}
	}
}
