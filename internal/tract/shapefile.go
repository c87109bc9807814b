package tract

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/tabular"
)

var geoidFields = []string{"GEOID", "GEOID20", "GEOID10"}

// LoadShapefile reads tract polygons from a .shp file and reprojects them to
// EPSG:4326 using the sibling .prj. GEOIDs are normalized to integers.
func LoadShapefile(path string) ([]*Polygon, tabular.Report, error) {
	report := tabular.Report{Source: path}
	log := zap.L().With(zap.String("component", "tract.loader"))

	prj, err := readPRJ(path)
	if err != nil {
		return nil, report, err
	}
	project, crs, err := reprojectorFromPRJ(prj)
	if err != nil {
		return nil, report, err
	}
	if prj == "" {
		log.Warn("tract: no .prj found, assuming geographic coordinates", zap.String("path", path))
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, report, eris.Wrapf(err, "tract: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := -1
	for _, name := range geoidFields {
		if geoidIdx = fieldIndex(reader, name); geoidIdx >= 0 {
			break
		}
	}
	if geoidIdx < 0 {
		return nil, report, eris.Errorf("tract: %s has no GEOID attribute", path)
	}

	seen := make(map[int64]bool)
	var polys []*Polygon

	for reader.Next() {
		report.Rows++
		n, shape := reader.Shape()
		line := n + 1

		rawID := strings.TrimSpace(strings.TrimRight(reader.Attribute(geoidIdx), "\x00"))
		geoid, err := tabular.ParseID(rawID)
		if err != nil {
			report.Skip(line, fmt.Sprintf("bad GEOID %q", rawID))
			continue
		}
		if seen[geoid] {
			report.Skip(line, fmt.Sprintf("duplicate GEOID %d", geoid))
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			report.Skip(line, "not a polygon")
			continue
		}
		boundary := assembleRings(ringsOf(poly, project))
		if boundary.NumPolygons() == 0 {
			report.Skip(line, "empty boundary")
			continue
		}
		p, err := NewPolygon(geoid, boundary)
		if err != nil {
			report.Skip(line, err.Error())
			continue
		}

		seen[geoid] = true
		polys = append(polys, p)
	}

	report.Loaded = len(polys)
	log.Info("tract: shapefile loaded",
		zap.String("path", path),
		zap.String("crs", crs),
		zap.Int("tracts", len(polys)),
		zap.Int("skipped", report.Skipped),
	)
	return polys, report, nil
}

// ringsOf splits a shapefile polygon into flat, reprojected rings.
func ringsOf(p *shp.Polygon, project reprojector) [][]float64 {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	rings := make([][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(p.Points)) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			lon, lat := project(p.Points[j].X, p.Points[j].Y)
			flat = append(flat, lon, lat)
		}
		rings = append(rings, flat)
	}
	return rings
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
