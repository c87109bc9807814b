package tract

import (
	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Polygon is one census tract boundary in EPSG:4326.
type Polygon struct {
	GEOID    int64
	Boundary *geom.MultiPolygon

	ordinal int
	bounds  rtreego.Rect
}

// boundsPad keeps degenerate (zero-width) boundaries indexable.
const boundsPad = 1e-9

// NewPolygon wraps a boundary for indexing.
func NewPolygon(geoid int64, boundary *geom.MultiPolygon) (*Polygon, error) {
	b := boundary.Bounds()
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min(0) - boundsPad, b.Min(1) - boundsPad},
		rtreego.Point{b.Max(0) + boundsPad, b.Max(1) + boundsPad},
	)
	if err != nil {
		return nil, err
	}
	return &Polygon{GEOID: geoid, Boundary: boundary, bounds: r}, nil
}

// Bounds implements rtreego.Spatial.
func (p *Polygon) Bounds() rtreego.Rect { return p.bounds }

// Contains reports whether (lon, lat) lies strictly inside the boundary: in the
// interior of some shell and outside (not on) every hole of that shell.
func (p *Polygon) Contains(lon, lat float64) bool {
	pt := geom.Coord{lon, lat}
	for i := 0; i < p.Boundary.NumPolygons(); i++ {
		if polygonContains(p.Boundary.Polygon(i), pt) {
			return true
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, pt geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if xy.LocatePointInRing(geom.XY, pt, poly.LinearRing(0).FlatCoords()) != location.Interior {
		return false
	}
	for k := 1; k < poly.NumLinearRings(); k++ {
		if xy.LocatePointInRing(geom.XY, pt, poly.LinearRing(k).FlatCoords()) != location.Exterior {
			return false
		}
	}
	return true
}

// assembleRings groups shapefile rings into polygons. Clockwise rings are
// shells; a counter-clockwise ring is a hole of the current shell when it lies
// inside it, otherwise it starts a new shell.
func assembleRings(rings [][]float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var shells [][][]float64

	for _, ring := range rings {
		if len(ring) < 8 {
			continue
		}
		hole := xy.IsRingCounterClockwise(geom.XY, ring) && len(shells) > 0 &&
			xy.LocatePointInRing(geom.XY, geom.Coord{ring[0], ring[1]}, shells[len(shells)-1][0]) != location.Exterior
		if hole {
			shells[len(shells)-1] = append(shells[len(shells)-1], ring)
			continue
		}
		shells = append(shells, [][]float64{ring})
	}

	for _, rs := range shells {
		poly := geom.NewPolygon(geom.XY)
		ok := true
		for _, r := range rs {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, r)); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	return mp
}
