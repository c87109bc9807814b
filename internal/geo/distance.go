// Package geo provides great-circle helpers for ranking agencies by proximity.
package geo

import (
	"github.com/golang/geo/s2"

	"github.com/sells-group/pantry-finder/internal/model"
)

// EarthRadiusMiles is the mean Earth radius.
const EarthRadiusMiles = 3958.7613

// Miles returns the great-circle distance between two points.
func Miles(a, b model.Point) float64 {
	p := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	q := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p.Distance(q).Radians() * EarthRadiusMiles
}
