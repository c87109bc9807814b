package render

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/pantry"
)

// FeatureCollection converts a response into point features, one per row
// with coordinates plus the query origin when it is known. Rows without
// coordinates are left out.
func FeatureCollection(resp *pantry.Response) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(resp.Rows)+1)}

	if resp.Origin.Point != nil {
		props := map[string]any{
			"kind":     "origin",
			"fallback": resp.Fallback,
			"at":       resp.At,
		}
		if resp.Origin.GEOID != 0 {
			props["geoid"] = resp.Origin.GEOID
		}
		if resp.Origin.Address != "" {
			props["address"] = resp.Origin.Address
		}
		if resp.Message != "" {
			props["message"] = resp.Message
		}
		f, err := pointFeature(*resp.Origin.Point, props)
		if err != nil {
			return nil, err
		}
		f.ID = "origin"
		fc.Features = append(fc.Features, f)
	}

	for i, r := range resp.Rows {
		pt, ok := r.Point()
		if !ok {
			continue
		}
		props := map[string]any{
			"kind":           "agency",
			"rank":           i + 1,
			"agency":         r.Agency,
			"city":           r.City,
			"address":        r.Address,
			"window":         r.Window,
			"phone":          r.Phone,
			"travel_minutes": r.TravelMinutes,
			"distance_miles": r.DistanceMiles,
		}
		if r.StraightLineMiles != nil {
			props["straight_line_miles"] = *r.StraightLineMiles
		}
		f, err := pointFeature(pt, props)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func pointFeature(pt model.Point, props map[string]any) (*geojson.Feature, error) {
	g, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{pt.Longitude, pt.Latitude})
	if err != nil {
		return nil, eris.Wrap(err, "render: build point")
	}
	return &geojson.Feature{Geometry: g, Properties: props}, nil
}
