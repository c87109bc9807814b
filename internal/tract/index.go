// Package tract resolves coordinates to census tract GEOIDs.
package tract

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
)

// ErrTractNotFound is returned when no tract polygon contains a point.
var ErrTractNotFound = eris.New("tract: no tract contains point")

// queryTolerance is the half-width of the rectangle used to probe the index.
const queryTolerance = 1e-9

// Index is an immutable bounding-box index over tract polygons.
type Index struct {
	tree  *rtreego.Rtree
	polys []*Polygon
}

// NewIndex indexes polygons. Load order is kept as the tie-break when polygons
// overlap.
func NewIndex(polys []*Polygon) *Index {
	idx := &Index{tree: rtreego.NewTree(2, 25, 50), polys: polys}
	for i, p := range polys {
		p.ordinal = i
		idx.tree.Insert(p)
	}
	return idx
}

// Len returns the number of indexed tracts.
func (idx *Index) Len() int { return len(idx.polys) }

// Resolve returns the GEOID of the first tract, in load order, whose boundary
// contains (lon, lat).
func (idx *Index) Resolve(lon, lat float64) (int64, error) {
	hits := idx.tree.SearchIntersect(rtreego.Point{lon, lat}.ToRect(queryTolerance))
	cands := make([]*Polygon, 0, len(hits))
	for _, h := range hits {
		if p, ok := h.(*Polygon); ok {
			cands = append(cands, p)
		}
	}
	slices.SortFunc(cands, func(a, b *Polygon) int { return a.ordinal - b.ordinal })

	for _, p := range cands {
		if p.Contains(lon, lat) {
			return p.GEOID, nil
		}
	}
	return 0, eris.Wrapf(ErrTractNotFound, "tract: resolve (%.6f, %.6f)", lon, lat)
}
