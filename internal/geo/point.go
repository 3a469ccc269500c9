// Package geo holds the point type shared by the client and the routing service.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// earthRadiusM is the mean Earth radius used for great-circle distances.
const earthRadiusM = 6_371_000.0

// Point is a named WGS-84 coordinate.
type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Validate reports whether p has a label and coordinates inside the WGS-84 ranges.
func (p Point) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, fmt.Errorf("lat %v out of range [-90, 90]", p.Lat))
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		errs = append(errs, fmt.Errorf("lng %v out of range [-180, 180]", p.Lng))
	}
	return errors.Join(errs...)
}

// String formats p the way route listings show it: "A (1.0000, 2.0000)".
func (p Point) String() string {
	return fmt.Sprintf("%s (%.4f, %.4f)", p.Name, p.Lat, p.Lng)
}

// DistanceMeters computes the great-circle distance in meters between a and b.
func DistanceMeters(a, b Point) float64 {
	const deg2rad = math.Pi / 180.0

	dLat := (b.Lat - a.Lat) * deg2rad
	dLng := (b.Lng - a.Lng) * deg2rad
	lat1r := a.Lat * deg2rad
	lat2r := b.Lat * deg2rad

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1r)*math.Cos(lat2r)*sinDLng*sinDLng
	c := 2 * math.Asin(math.Sqrt(h))
	return earthRadiusM * c
}
