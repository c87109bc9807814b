package tract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

const nad83PRJ = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

type fixtureTract struct {
	geoid string
	rings [][]shp.Point
}

// box returns a closed ring; clockwise when cw is true.
func box(minX, minY, maxX, maxY float64, cw bool) []shp.Point {
	if cw {
		return []shp.Point{{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY}, {X: maxX, Y: minY}, {X: minX, Y: minY}}
	}
	return []shp.Point{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}, {X: minX, Y: minY}}
}

// writeShapefile writes tracts to a temporary shapefile with an optional .prj.
func writeShapefile(t *testing.T, prj string, tracts []fixtureTract) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracts.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("GEOID", 20)})
	for i, tr := range tracts {
		poly := shp.Polygon(*shp.NewPolyLine(tr.rings))
		w.Write(&poly)
		w.WriteAttribute(i, 0, tr.geoid)
	}
	w.Close()
	moveDBF(t, path)

	if prj != "" {
		require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "tracts.prj"), []byte(prj), 0o644))
	}
	return path
}

// moveDBF renames the attribute file go-shp writes as "<base>dbf" to
// "<base>.dbf", where readers look for it.
func moveDBF(t *testing.T, shpPath string) {
	t.Helper()
	base := strings.TrimSuffix(shpPath, ".shp")
	if _, err := os.Stat(base + ".dbf"); err == nil {
		return
	}
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

// wakeFixture has two adjacent tracts, a donut tract, and a tract filling part
// of the donut's hole.
func wakeFixture() []fixtureTract {
	return []fixtureTract{
		{geoid: "37183050100", rings: [][]shp.Point{box(-79, 35, -78, 36, true)}},
		{geoid: "37183050200", rings: [][]shp.Point{box(-78, 35, -77, 36, true)}},
		{geoid: "37183050300", rings: [][]shp.Point{
			box(-77, 35, -75, 37, true),
			box(-76.5, 35.5, -75.5, 36.5, false),
		}},
		{geoid: "37183050400", rings: [][]shp.Point{box(-76.4, 35.6, -75.6, 36.4, true)}},
	}
}
