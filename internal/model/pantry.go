package model

import (
	"slices"
	"strings"
)

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within geographic bounds.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Categories holds the category facets a user has selected. Filter2 only
// applies when at least one Filter1 value is selected.
type Categories struct {
	Filter1    []string `json:"filter_1,omitempty" yaml:"filter_1,omitempty"`
	Filter2    []string `json:"filter_2,omitempty" yaml:"filter_2,omitempty"`
	ChoiceOnly bool     `json:"choice_only" yaml:"choice_only"`
}

// Empty reports whether no category constraint is active.
func (c Categories) Empty() bool {
	return len(c.Filter1) == 0 && len(c.Filter2) == 0 && !c.ChoiceOnly
}

// Normalized returns a copy with trimmed, de-duplicated, sorted values.
func (c Categories) Normalized() Categories {
	return Categories{
		Filter1:    normalizeValues(c.Filter1),
		Filter2:    normalizeValues(c.Filter2),
		ChoiceOnly: c.ChoiceOnly,
	}
}

func normalizeValues(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// ResultRow is one ranked agency opening returned to the presentation layer.
type ResultRow struct {
	Agency        string   `json:"agency" yaml:"agency"`
	City          string   `json:"city,omitempty" yaml:"city,omitempty"`
	Address       string   `json:"address,omitempty" yaml:"address,omitempty"`
	Window        string   `json:"window,omitempty" yaml:"window,omitempty"`
	Phone         string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	TravelMinutes float64  `json:"travel_minutes" yaml:"travel_minutes"`
	DistanceMiles float64  `json:"distance_miles" yaml:"distance_miles"`
	Latitude      *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`

	// StraightLineMiles is the great-circle distance from the query origin.
	// It is display-only and not part of the row identity.
	StraightLineMiles *float64 `json:"straight_line_miles,omitempty" yaml:"straight_line_miles,omitempty"`
}

// Point returns the row's coordinates when both are present.
func (r ResultRow) Point() (Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Point{}, false
	}
	return Point{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}
