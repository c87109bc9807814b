package pantry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pantry-finder/internal/hours"
	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/odm"
	"github.com/sells-group/pantry-finder/internal/refdata"
	"github.com/sells-group/pantry-finder/internal/tract"
	"github.com/sells-group/pantry-finder/pkg/geocode"
)

const (
	tractNear int64 = 37183050100
	tractFar  int64 = 37183050200
)

// mondayNoon is the first Monday of January 2024 at noon: week 1.
var mondayNoon = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func travelRows() []odm.Row {
	return []odm.Row{
		{GEOID: tractNear, HasGEOID: true, AgencyName: "Foodbank A", TravelMinutes: 15, Miles: 3.2,
			Address: "1 Main St", City: "Raleigh", Phone: "919-555-0100",
			Latitude: ptr(35.60), Longitude: ptr(-78.60), Filter1: "Pantry", Choice: true},
		{GEOID: tractNear, HasGEOID: true, AgencyName: "Foodbank B", TravelMinutes: 18, Miles: 5,
			Address: "2 Oak St", City: "Raleigh", Filter1: "Meal"},
		{GEOID: tractNear, HasGEOID: true, AgencyName: "Foodbank C", TravelMinutes: 45, Miles: 20,
			Address: "3 Elm St", City: "Cary", Filter1: "Pantry"},
		{GEOID: tractFar, HasGEOID: true, AgencyName: "Foodbank D", TravelMinutes: 45, Miles: 22,
			Address: "4 Pine St", City: "Durham", Filter1: "Pantry"},
		{ZIP: "27601", AgencyName: "Foodbank A", TravelMinutes: 12, Miles: 2.5,
			Address: "1 Main St", City: "Raleigh", Phone: "919-555-0100",
			Latitude: ptr(35.60), Longitude: ptr(-78.60), Filter1: "Pantry", Choice: true},
	}
}

func scheduleWindows() []hours.Window {
	return []hours.Window{
		{Agency: "Foodbank A", Day: time.Monday, Week: 1, Window: "10:00–14:00"},
		{Agency: "Foodbank B", Day: time.Monday, Week: 1, Window: "9:00 AM-11:00 AM"},
		{Agency: "Foodbank C", Day: time.Monday, Week: 1, Window: "8:00 AM–8:00 PM"},
		{Agency: "Foodbank D", Day: time.Monday, Week: 1, Window: "8:00 AM–8:00 PM"},
		{Agency: "Foodbank A", Day: time.Tuesday, Week: 1, Window: "10:00–14:00"},
	}
}

func box(t *testing.T, minX, minY, maxX, maxY float64) *geom.MultiPolygon {
	t.Helper()
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords([][][]geom.Coord{{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}})
	require.NoError(t, err)
	return mp
}

func testDataset(t *testing.T) *refdata.Dataset {
	t.Helper()
	near, err := tract.NewPolygon(tractNear, box(t, -79, 35, -78, 36))
	require.NoError(t, err)
	far, err := tract.NewPolygon(tractFar, box(t, -78, 35, -77, 36))
	require.NoError(t, err)
	return &refdata.Dataset{
		Tracts: tract.NewIndex([]*tract.Polygon{near, far}),
		Travel: odm.NewIndex(travelRows()),
		Hours:  hours.NewSchedule(scheduleWindows()),
	}
}

type staticSource struct {
	ds  *refdata.Dataset
	err error
}

func (s staticSource) Load(context.Context) (*refdata.Dataset, error) { return s.ds, s.err }

type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
	last   geocode.AddressInput
}

func (f *fakeGeocoder) Geocode(_ context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	f.calls++
	f.last = addr
	return f.result, f.err
}

type fakeSelections map[string]model.Categories

func (f fakeSelections) Load(_ context.Context, id string) (model.Categories, error) {
	return f[id], nil
}

var (
	pointNear = model.Point{Latitude: 35.5, Longitude: -78.5}
	pointFar  = model.Point{Latitude: 35.5, Longitude: -77.5}
)
