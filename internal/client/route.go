package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
)

const opRequestRoute = "request route"

// RouteRequest is the body sent to the routing endpoint.
type RouteRequest struct {
	Current geo.Point   `json:"current"`
	Points  []geo.Point `json:"points"`
}

// RouteResult is the body returned by the routing endpoint on success.
type RouteResult struct {
	Route []geo.Point `json:"route"`
}

// PointSource supplies the points a route request is built from.
// *PointLoader satisfies it.
type PointSource interface {
	Points() []geo.Point
}

// RouteRequester asks the routing service for a visiting order of the loaded
// points, starting from a fixed reference position.
type RouteRequester struct {
	sender  Sender
	url     string
	current geo.Point
	points  PointSource
	log     logging.Logger

	op operation[[]geo.Point]
}

// NewRouteRequester creates a requester posting to routeURL.
func NewRouteRequester(sender Sender, routeURL string, current geo.Point, points PointSource, opts ...Option) *RouteRequester {
	s := applyOptions(opts)
	return &RouteRequester{
		sender:  sender,
		url:     routeURL,
		current: current,
		points:  points,
		log:     s.log.With(logging.String("component", "route_requester")),
	}
}

// RequestRoute performs one route request.
//
// Errors:
//   - ErrBusy when a request is already in flight; nothing else happens.
//   - ErrNoPoints when the point collection is empty; no request is sent.
//   - *Error of KindTransport, KindStatus or KindDecode when the exchange fails.
//
// A failure never replaces the route of an earlier success.
func (r *RouteRequester) RequestRoute(ctx context.Context) error {
	var points []geo.Point
	check := func() error {
		points = r.points.Points()
		if len(points) == 0 {
			return ErrNoPoints
		}
		return nil
	}

	err := r.op.run(check, func() ([]geo.Point, error) {
		return r.send(ctx, points)
	})
	switch {
	case errors.Is(err, ErrBusy):
		r.log.Debug(ctx, "route request ignored, previous request in flight")
	case err != nil:
		r.log.Warn(ctx, "route request failed", logging.Err(err))
	default:
		r.log.Info(ctx, "route computed", logging.Int("stops", len(r.op.snapshot().Data)))
	}
	return err
}

func (r *RouteRequester) send(ctx context.Context, points []geo.Point) ([]geo.Point, error) {
	body, err := json.Marshal(RouteRequest{Current: r.current, Points: points})
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: opRequestRoute, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: opRequestRoute, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var result RouteResult
	if err := exchange(r.sender, req, opRequestRoute, &result); err != nil {
		return nil, err
	}
	return result.Route, nil
}

// Route returns the route of the last successful request.
func (r *RouteRequester) Route() []geo.Point {
	return r.op.snapshot().Data
}

// State returns the requester's current snapshot.
func (r *RouteRequester) State() State[[]geo.Point] {
	return r.op.snapshot()
}

// Busy reports whether a request is in flight.
func (r *RouteRequester) Busy() bool {
	return r.op.snapshot().Busy()
}
