package client

import (
	"context"
	"net/http"
	"slices"
	"sync/atomic"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
)

const opFetchPoints = "fetch data.json"

// PointLoader fetches the static point collection once per session.
type PointLoader struct {
	sender Sender
	url    string
	log    logging.Logger

	started atomic.Bool
	op      operation[[]geo.Point]
}

// NewPointLoader creates a loader that reads points from dataURL.
func NewPointLoader(sender Sender, dataURL string, opts ...Option) *PointLoader {
	s := applyOptions(opts)
	return &PointLoader{
		sender: sender,
		url:    dataURL,
		log:    s.log.With(logging.String("component", "point_loader")),
	}
}

// Load issues the single request to the point source and stores the returned
// points verbatim. Later calls return ErrAlreadyLoaded without touching the
// network; a failed load is not retried.
func (l *PointLoader) Load(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	err := l.op.run(nil, func() ([]geo.Point, error) {
		return l.fetch(ctx)
	})
	if err != nil {
		l.log.Warn(ctx, "loading points failed", logging.String("url", l.url), logging.Err(err))
		return err
	}

	l.log.Info(ctx, "points loaded", logging.Int("count", len(l.op.snapshot().Data)))
	return nil
}

func (l *PointLoader) fetch(ctx context.Context) ([]geo.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: opFetchPoints, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	var points []geo.Point
	if err := exchange(l.sender, req, opFetchPoints, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Points returns a copy of the loaded points; it is empty until a load succeeds.
func (l *PointLoader) Points() []geo.Point {
	return slices.Clone(l.op.snapshot().Data)
}

// State returns the loader's current snapshot.
func (l *PointLoader) State() State[[]geo.Point] {
	return l.op.snapshot()
}
