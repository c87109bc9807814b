package pantry

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pantry-finder/internal/model"
)

// atLayouts are the accepted query time formats. Layouts without a zone are
// read in the engine's location.
var atLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseAt parses a query time. An empty string yields the zero time, which
// Search treats as now.
func ParseAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Wrapf(ErrInvalidQuery, "unrecognized time %q, want YYYY-MM-DD HH:MM", s)
}

// ParsePoint parses a latitude and longitude pair. Both empty yields nil;
// exactly one empty is an error.
func ParsePoint(lat, lon string) (*model.Point, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, eris.Wrap(ErrInvalidQuery, "latitude and longitude must be given together")
	}
	y, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidQuery, "latitude %q is not a number", lat)
	}
	x, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidQuery, "longitude %q is not a number", lon)
	}
	pt := model.Point{Latitude: y, Longitude: x}
	if !pt.Valid() {
		return nil, eris.Wrapf(ErrInvalidQuery, "coordinates out of range: %v", pt)
	}
	return &pt, nil
}
