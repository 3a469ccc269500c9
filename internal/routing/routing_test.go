package routing

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
)

func names(route []geo.Point) []string {
	out := make([]string, len(route))
	for i, p := range route {
		out[i] = p.Name
	}
	return out
}

// ---- NearestNeighbour ----

func TestNearestNeighbour_Plan(t *testing.T) {
	current := geo.Point{Name: "Current", Lat: -6.2, Lng: 106.8}

	cases := []struct {
		name   string
		points []geo.Point
		want   []string
	}{
		{
			name:   "no points",
			points: nil,
			want:   []string{"Current"},
		},
		{
			name:   "single point",
			points: []geo.Point{{Name: "A", Lat: 1, Lng: 2}},
			want:   []string{"Current", "A"},
		},
		{
			name: "greedy order",
			points: []geo.Point{
				{Name: "Far", Lat: -6.5, Lng: 106.8},
				{Name: "Near", Lat: -6.21, Lng: 106.8},
				{Name: "Mid", Lat: -6.3, Lng: 106.8},
			},
			want: []string{"Current", "Near", "Mid", "Far"},
		},
		{
			name: "duplicate names visited once",
			points: []geo.Point{
				{Name: "A", Lat: -6.21, Lng: 106.8},
				{Name: "A", Lat: -6.22, Lng: 106.8},
				{Name: "B", Lat: -6.3, Lng: 106.8},
			},
			want: []string{"Current", "A", "B"},
		},
		{
			name:   "point named like current is skipped",
			points: []geo.Point{{Name: "Current", Lat: 0, Lng: 0}, {Name: "X", Lat: -6.3, Lng: 106.8}},
			want:   []string{"Current", "X"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewNearestNeighbour().Plan(context.Background(), current, tc.points)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g := strings.Join(names(got), ","); g != strings.Join(tc.want, ",") {
				t.Errorf("route = %s, want %s", g, strings.Join(tc.want, ","))
			}
		})
	}
}

func TestNearestNeighbour_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNearestNeighbour().Plan(ctx, geo.Point{Name: "c"}, []geo.Point{{Name: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// ---- CachedPlanner ----

// mockCacheStore is a simple in-memory CacheStore for tests.
type mockCacheStore struct {
	mu       sync.Mutex
	data     map[CacheKey][]geo.Point
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newMockCacheStore() *mockCacheStore {
	return &mockCacheStore{data: make(map[CacheKey][]geo.Point)}
}

func (m *mockCacheStore) GetCachedRoute(_ context.Context, key CacheKey) ([]geo.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *mockCacheStore) SetCachedRoute(_ context.Context, key CacheKey, route []geo.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = route
	return nil
}

func (m *mockCacheStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }

// mockPlanner returns a fixed route or error.
type mockPlanner struct {
	route []geo.Point
	err   error
	calls int
}

func (m *mockPlanner) Plan(context.Context, geo.Point, []geo.Point) ([]geo.Point, error) {
	m.calls++
	return m.route, m.err
}

var (
	testCurrent = geo.Point{Name: "Current", Lat: -6.2, Lng: 106.8}
	testPoints  = []geo.Point{{Name: "A", Lat: -6.21, Lng: 106.81}}
)

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background work")
	}
}

func TestCachedPlanner_CacheMiss_CallsInnerAndCaches(t *testing.T) {
	store := newMockCacheStore()
	inner := &mockPlanner{route: []geo.Point{testCurrent, testPoints[0]}}

	done := make(chan struct{})
	cp := NewCachedPlanner(inner, store, withAfterStore(func() { close(done) }))

	got, err := cp.Plan(context.Background(), testCurrent, testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Name != "A" {
		t.Errorf("route = %v", got)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}

	waitFor(t, done)
	if store.setCalls != 1 {
		t.Errorf("SetCachedRoute called %d times, want 1", store.setCalls)
	}
	if _, ok := store.data[cacheKey(testCurrent, testPoints)]; !ok {
		t.Error("route not stored under the computed key")
	}
}

func TestCachedPlanner_CacheHit_DoesNotCallInner(t *testing.T) {
	store := newMockCacheStore()
	inner := &mockPlanner{route: []geo.Point{{Name: "fresh"}}}
	cp := NewCachedPlanner(inner, store)

	stored := []geo.Point{{Name: "Current", Lat: -6.2003, Lng: 106.8004}, {Name: "cached"}}
	store.data[cacheKey(testCurrent, testPoints)] = stored

	got, err := cp.Plan(context.Background(), testCurrent, testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Name != "cached" {
		t.Fatalf("route = %v, want the cached order", got)
	}
	if got[0] != testCurrent {
		t.Errorf("route[0] = %v, want the caller's position %v", got[0], testCurrent)
	}
	if stored[0].Lat != -6.2003 {
		t.Error("cached route was modified in place")
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times, want 0", inner.calls)
	}
}

func TestCachedPlanner_NearbyOriginsShareEntry(t *testing.T) {
	store := NewMemoryCacheStore()
	inner := &mockPlanner{}

	done := make(chan struct{})
	cp := NewCachedPlanner(inner, store, withAfterStore(func() { close(done) }))

	first := geo.Point{Name: "Current", Lat: -6.20000, Lng: 106.80000}
	second := geo.Point{Name: "Current", Lat: -6.20001, Lng: 106.80001}
	inner.route = []geo.Point{first, testPoints[0]}

	if _, err := cp.Plan(context.Background(), first, testPoints); err != nil {
		t.Fatalf("first Plan: %v", err)
	}
	waitFor(t, done)

	got, err := cp.Plan(context.Background(), second, testPoints)
	if err != nil {
		t.Fatalf("second Plan: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1 (second origin should hit the cache)", inner.calls)
	}
	if got[0] != second {
		t.Errorf("route[0] = %v, want %v", got[0], second)
	}
}

func TestCachedPlanner_CacheReadError_FallsThrough(t *testing.T) {
	store := newMockCacheStore()
	store.getErr = errors.New("db down")
	inner := &mockPlanner{route: []geo.Point{{Name: "ok"}}}

	done := make(chan struct{})
	cp := NewCachedPlanner(inner, store, withAfterStore(func() { close(done) }))

	got, err := cp.Plan(context.Background(), testCurrent, testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Name != "ok" {
		t.Errorf("route = %v, want ok", got)
	}
	waitFor(t, done)
}

func TestCachedPlanner_InnerError_Propagated(t *testing.T) {
	store := newMockCacheStore()
	inner := &mockPlanner{err: context.DeadlineExceeded}
	cp := NewCachedPlanner(inner, store)

	if _, err := cp.Plan(context.Background(), testCurrent, testPoints); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if store.setCalls != 0 {
		t.Errorf("SetCachedRoute called %d times, want 0", store.setCalls)
	}
}

func TestCachedPlanner_AsyncWriteError_IsLogged(t *testing.T) {
	store := newMockCacheStore()
	store.setErr = errors.New("write failed")
	inner := &mockPlanner{route: []geo.Point{{Name: "x"}}}

	var buf bytes.Buffer
	done := make(chan struct{})
	cp := NewCachedPlanner(inner, store,
		WithLogger(logging.NewWithWriter(logging.Config{Format: "json"}, &buf)),
		withAfterStore(func() { close(done) }),
	)

	if _, err := cp.Plan(context.Background(), testCurrent, testPoints); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, done)

	out := buf.String()
	if !strings.Contains(out, "route cache write failed") || !strings.Contains(out, "write failed") {
		t.Errorf("log output %q does not mention the failed write", out)
	}
}

// ---- cache keys ----

func TestCacheKey_Deterministic(t *testing.T) {
	a := cacheKey(testCurrent, testPoints)
	b := cacheKey(testCurrent, []geo.Point{{Name: "A", Lat: -6.21, Lng: 106.81}})
	if a != b {
		t.Errorf("keys differ for equal input: %v vs %v", a, b)
	}
	if len(a.OriginHash) != geohashPrecision {
		t.Errorf("origin hash %q has length %d, want %d", a.OriginHash, len(a.OriginHash), geohashPrecision)
	}
}

func TestCacheKey_SensitiveToPointSet(t *testing.T) {
	base := cacheKey(testCurrent, testPoints)

	variants := map[string][]geo.Point{
		"moved":   {{Name: "A", Lat: -6.22, Lng: 106.81}},
		"renamed": {{Name: "B", Lat: -6.21, Lng: 106.81}},
		"extra":   {testPoints[0], {Name: "C", Lat: 0, Lng: 0}},
		"empty":   nil,
	}
	for name, pts := range variants {
		if k := cacheKey(testCurrent, pts); k.Fingerprint == base.Fingerprint {
			t.Errorf("%s: fingerprint unchanged", name)
		}
	}
}

func TestCacheKey_Origins(t *testing.T) {
	base := cacheKey(geo.Point{Name: "c", Lat: -6.20000, Lng: 106.80000}, testPoints)

	cases := []struct {
		name      string
		current   geo.Point
		wantEqual bool
	}{
		{name: "about a metre away", current: geo.Point{Name: "c", Lat: -6.20001, Lng: 106.80001}, wantEqual: true},
		{name: "different cell", current: geo.Point{Name: "c", Lat: -6.21, Lng: 106.80}, wantEqual: false},
		{name: "different name", current: geo.Point{Name: "d", Lat: -6.20000, Lng: 106.80000}, wantEqual: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cacheKey(tc.current, testPoints) == base; got != tc.wantEqual {
				t.Errorf("key equal = %v, want %v", got, tc.wantEqual)
			}
		})
	}
}

// ---- MemoryCacheStore ----

func TestMemoryCacheStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCacheStore()
	m.now = func() time.Time { return now }

	key := CacheKey{OriginHash: "qqguwvz", Fingerprint: "1"}
	ctx := context.Background()

	if got, err := m.GetCachedRoute(ctx, key); err != nil || got != nil {
		t.Fatalf("empty store: got %v, %v", got, err)
	}
	if err := m.SetCachedRoute(ctx, key, []geo.Point{{Name: "A"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := m.GetCachedRoute(ctx, key); len(got) != 1 {
		t.Fatalf("fresh entry: got %v", got)
	}

	now = now.Add(cacheTTL)
	if got, _ := m.GetCachedRoute(ctx, key); got != nil {
		t.Errorf("expired entry returned: %v", got)
	}
}

type countingRecorder struct{ hits, misses int }

func (r *countingRecorder) CacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestCachedPlanner_RecordsLookups(t *testing.T) {
	store := newMockCacheStore()
	inner := &mockPlanner{route: []geo.Point{{Name: "x"}}}
	rec := &countingRecorder{}

	done := make(chan struct{})
	cp := NewCachedPlanner(inner, store, WithRecorder(rec), withAfterStore(func() { close(done) }))

	if _, err := cp.Plan(context.Background(), testCurrent, testPoints); err != nil {
		t.Fatalf("first Plan: %v", err)
	}
	waitFor(t, done)
	if _, err := cp.Plan(context.Background(), testCurrent, testPoints); err != nil {
		t.Fatalf("second Plan: %v", err)
	}

	if rec.misses != 1 || rec.hits != 1 {
		t.Errorf("hits=%d misses=%d, want 1 and 1", rec.hits, rec.misses)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestMemoryCacheStore_SetSweepsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCacheStore()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		key := CacheKey{OriginHash: "qqguwvz", Fingerprint: strconv.Itoa(i)}
		if err := m.SetCachedRoute(ctx, key, []geo.Point{{Name: "A"}}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	now = now.Add(cacheTTL)
	if err := m.SetCachedRoute(ctx, CacheKey{OriginHash: "other", Fingerprint: "x"}, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if n := m.Len(); n != 1 {
		t.Errorf("entries after all expired = %d, want 1", n)
	}
}

func TestMemoryCacheStore_PurgeExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCacheStore()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.SetCachedRoute(ctx, CacheKey{Fingerprint: "old"}, nil)
	now = now.Add(cacheTTL / 2)
	_ = m.SetCachedRoute(ctx, CacheKey{Fingerprint: "new"}, nil)
	now = now.Add(cacheTTL / 2)

	n, err := m.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 || m.Len() != 1 {
		t.Errorf("purged %d, left %d; want 1 and 1", n, m.Len())
	}
}

// purgeCounter counts PurgeExpired calls.
type purgeCounter struct {
	mockCacheStore
	calls chan struct{}
}

func (p *purgeCounter) PurgeExpired(context.Context) (int64, error) {
	select {
	case p.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestRunPurger_PurgesUntilCancelled(t *testing.T) {
	store := &purgeCounter{calls: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		RunPurger(ctx, store, time.Millisecond, logging.Noop())
		close(stopped)
	}()

	waitFor(t, store.calls)
	cancel()
	waitFor(t, stopped)
}
