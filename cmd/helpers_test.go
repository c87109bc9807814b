package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pantry-finder/internal/config"
)

const testHoursCSV = `agency,day,week,window,address,city
Foodbank A,Monday,1,10:00 AM–2:00 PM,1 Main St,Raleigh
Foodbank B,Monday,1,9:00 AM-1:00 PM,2 Oak St,Raleigh
Foodbank B,Funday,1,9:00 AM-1:00 PM,2 Oak St,Raleigh
`

const testTravelCSV = `geoid,zip,agency_name,total_traveltime,total_miles,latitude,longitude,filter_1,filter_2,choice
37183050100,,Foodbank A,14.996,3.204,35.6,-78.6,Pantry,Halal,1
37183050100,,Foodbank B,18,5,,,Meal,,0
,27601,Foodbank A,12,2.5,35.6,-78.6,Pantry,Halal,1
`

// writeTestData writes a small hours table, travel table and one-tract
// shapefile into a temp dir and returns the config pointing at them.
func writeTestData(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	hoursPath := filepath.Join(dir, "hours.csv")
	require.NoError(t, os.WriteFile(hoursPath, []byte(testHoursCSV), 0o600))
	travelPath := filepath.Join(dir, "travel.csv")
	require.NoError(t, os.WriteFile(travelPath, []byte(testTravelCSV), 0o600))

	tractsPath := filepath.Join(dir, "tracts.shp")
	w, err := shp.Create(tractsPath, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("GEOID", 20)})
	ring := []shp.Point{{X: -79, Y: 35}, {X: -79, Y: 36}, {X: -78, Y: 36}, {X: -78, Y: 35}, {X: -79, Y: 35}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	w.Write(&poly)
	w.WriteAttribute(0, 0, "37183050100")
	w.Close()
	// go-shp names the attribute file "tractsdbf".
	if _, err := os.Stat(filepath.Join(dir, "tracts.dbf")); err != nil {
		require.NoError(t, os.Rename(filepath.Join(dir, "tractsdbf"), filepath.Join(dir, "tracts.dbf")))
	}

	t.Setenv("PANTRY_DATA_HOURS_PATH", hoursPath)
	t.Setenv("PANTRY_DATA_TRAVEL_PATH", travelPath)
	t.Setenv("PANTRY_DATA_TRACTS_PATH", tractsPath)
	t.Setenv("PANTRY_LOG_LEVEL", "error")

	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	c, err := config.Load()
	require.NoError(t, err)
	return c
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}
