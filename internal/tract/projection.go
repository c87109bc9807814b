package tract

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// reprojector maps source coordinates to EPSG:4326 (lon, lat).
type reprojector func(x, y float64) (lon, lat float64)

func geographic(x, y float64) (float64, float64) { return x, y }

// webMercatorRadius is the sphere radius used by EPSG:3857.
const webMercatorRadius = 6378137.0

func inverseWebMercator(x, y float64) (float64, float64) {
	lon := x / webMercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

var webMercatorMarkers = []string{
	"mercator_auxiliary_sphere",
	"pseudo-mercator",
	"pseudo_mercator",
	"popular visualisation",
	"web_mercator",
	"\"3857\"",
	"900913",
}

// reprojectorFromPRJ chooses how to bring a shapefile's coordinates into
// EPSG:4326 from its .prj WKT. Geographic systems (NAD83, WGS84) are used as-is.
func reprojectorFromPRJ(wkt string) (reprojector, string, error) {
	w := strings.ToLower(strings.TrimSpace(wkt))
	switch {
	case w == "":
		return geographic, "unknown", nil
	case strings.HasPrefix(w, "projcs[") || strings.HasPrefix(w, "projcrs["):
		for _, m := range webMercatorMarkers {
			if strings.Contains(w, m) {
				return inverseWebMercator, "EPSG:3857", nil
			}
		}
		return nil, "", eris.Errorf("tract: unsupported projected coordinate system %s", crsName(wkt))
	case strings.HasPrefix(w, "geogcs[") || strings.HasPrefix(w, "geogcrs["):
		return geographic, crsName(wkt), nil
	default:
		return nil, "", eris.Errorf("tract: unrecognized .prj content %q", truncate(wkt, 40))
	}
}

// crsName extracts the quoted name from WKT like GEOGCS["GCS_North_American_1983",...].
func crsName(wkt string) string {
	start := strings.IndexByte(wkt, '"')
	if start < 0 {
		return "unnamed"
	}
	end := strings.IndexByte(wkt[start+1:], '"')
	if end < 0 {
		return "unnamed"
	}
	return wkt[start+1 : start+1+end]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// readPRJ returns the sibling .prj content of a .shp path, or "" when absent.
func readPRJ(shpPath string) (string, error) {
	prjPath := strings.TrimSuffix(shpPath, shpExt(shpPath)) + ".prj"
	data, err := os.ReadFile(prjPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "tract: read %s", prjPath)
	}
	return string(data), nil
}

func shpExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
