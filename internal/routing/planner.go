// Package routing computes visiting orders for the routing endpoint.
package routing

import (
	"context"
	"math"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

// Planner orders points into a route starting at current.
type Planner interface {
	Plan(ctx context.Context, current geo.Point, points []geo.Point) ([]geo.Point, error)
}

// NearestNeighbour builds a route greedily: from the last visited point it
// always moves to the closest unvisited one. Points are identified by name,
// so a point whose name was already visited (including current's) is skipped.
type NearestNeighbour struct{}

// NewNearestNeighbour returns the greedy planner.
func NewNearestNeighbour() *NearestNeighbour { return &NearestNeighbour{} }

// Plan returns current followed by every distinct point in visiting order.
func (NearestNeighbour) Plan(ctx context.Context, current geo.Point, points []geo.Point) ([]geo.Point, error) {
	visited := make(map[string]bool, len(points)+1)
	visited[current.Name] = true

	route := make([]geo.Point, 0, len(points)+1)
	route = append(route, current)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last := route[len(route)-1]
		best := -1
		bestDist := math.MaxFloat64
		for i, p := range points {
			if visited[p.Name] {
				continue
			}
			if d := geo.DistanceMeters(last, p); d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			return route, nil
		}

		route = append(route, points[best])
		visited[points[best].Name] = true
	}
}
