// Package pantry composes the travel index and the hours schedule into ranked,
// filtered agency results.
package pantry

import (
	"cmp"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/hours"
	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/odm"
)

// Stages toggles the optional steps of a search.
type Stages struct {
	ZIPLookup  bool `mapstructure:"zip_lookup" json:"zip_lookup" yaml:"zip_lookup"`
	Hours      bool `mapstructure:"hours" json:"hours" yaml:"hours"`
	Categories bool `mapstructure:"categories" json:"categories" yaml:"categories"`
}

// AllStages enables every stage.
func AllStages() Stages {
	return Stages{ZIPLookup: true, Hours: true, Categories: true}
}

// coordinateTolerance is how far apart (in degrees) the two sources may place
// an agency before the disagreement is logged.
const coordinateTolerance = 1e-6

// joined is a schedule window merged with its travel row, before projection.
type joined struct {
	row     model.ResultRow
	filter1 string
	filter2 string
	choice  bool
}

// BuildResults turns a candidate set into display rows: open windows at m are
// joined to their travel rows, category filters applied, duplicates removed and
// the rest ranked by travel time with minutes and miles rounded to cents.
// It is a pure function of its inputs.
func BuildResults(cands odm.CandidateSet, sched *hours.Schedule, m hours.Moment, cats model.Categories, stages Stages) []model.ResultRow {
	var merged []joined
	if stages.Hours {
		merged = joinOpen(cands, sched, m)
	} else {
		merged = make([]joined, 0, len(cands.Rows))
		for _, tr := range cands.Rows {
			merged = append(merged, fromTravel(tr))
		}
	}

	if stages.Categories && !cats.Empty() {
		merged = slices.DeleteFunc(merged, func(j joined) bool { return !matchesCategories(j, cats) })
	}

	rows := dedupe(merged)
	slices.SortStableFunc(rows, func(a, b model.ResultRow) int {
		return cmp.Or(
			cmp.Compare(a.TravelMinutes, b.TravelMinutes),
			cmp.Compare(a.Agency, b.Agency),
			cmp.Compare(a.Address, b.Address),
			cmp.Compare(a.Window, b.Window),
		)
	})
	for i := range rows {
		rows[i].TravelMinutes = round2(rows[i].TravelMinutes)
		rows[i].DistanceMiles = round2(rows[i].DistanceMiles)
	}
	// Rounding can make two distinct rows display identically.
	return dedupeRows(rows)
}

func joinOpen(cands odm.CandidateSet, sched *hours.Schedule, m hours.Moment) []joined {
	if sched == nil {
		return nil
	}
	byAgency := make(map[string][]odm.Row, len(cands.Agencies))
	for _, tr := range cands.Rows {
		byAgency[tr.AgencyName] = append(byAgency[tr.AgencyName], tr)
	}

	var out []joined
	for _, w := range sched.Open(cands.AgencySet(), m) {
		for _, tr := range byAgency[w.Agency] {
			out = append(out, merge(w, tr))
		}
	}
	return out
}

func fromTravel(tr odm.Row) joined {
	return joined{
		row: model.ResultRow{
			Agency:        tr.AgencyName,
			City:          tr.City,
			Address:       tr.Address,
			Phone:         tr.Phone,
			TravelMinutes: tr.TravelMinutes,
			DistanceMiles: tr.Miles,
			Latitude:      tr.Latitude,
			Longitude:     tr.Longitude,
		},
		filter1: tr.Filter1,
		filter2: tr.Filter2,
		choice:  tr.Choice,
	}
}

// merge fills each location field from the travel row, falling back to the
// schedule row only when the travel value is absent.
func merge(w hours.Window, tr odm.Row) joined {
	j := fromTravel(tr)
	j.row.Window = w.Window
	j.row.Address = cmp.Or(tr.Address, w.Address)
	j.row.City = cmp.Or(tr.City, w.City)
	j.row.Phone = cmp.Or(tr.Phone, w.Phone)
	j.row.Latitude = preferCoordinate(tr.Latitude, w.Latitude)
	j.row.Longitude = preferCoordinate(tr.Longitude, w.Longitude)

	if conflicts(tr.Latitude, w.Latitude) || conflicts(tr.Longitude, w.Longitude) {
		zap.L().Warn("pantry: travel index and schedule disagree on agency coordinates",
			zap.String("agency", tr.AgencyName),
			zap.Float64p("travel_latitude", tr.Latitude),
			zap.Float64p("travel_longitude", tr.Longitude),
			zap.Float64p("schedule_latitude", w.Latitude),
			zap.Float64p("schedule_longitude", w.Longitude),
		)
	}
	return j
}

func preferCoordinate(primary, secondary *float64) *float64 {
	if primary != nil {
		return primary
	}
	return secondary
}

func conflicts(a, b *float64) bool {
	return a != nil && b != nil && math.Abs(*a-*b) > coordinateTolerance
}

// matchesCategories applies the cumulative category filters. filter_2 only
// constrains rows when a filter_1 selection is also active.
func matchesCategories(j joined, cats model.Categories) bool {
	if len(cats.Filter1) > 0 {
		if !slices.Contains(cats.Filter1, j.filter1) {
			return false
		}
		if len(cats.Filter2) > 0 && !slices.Contains(cats.Filter2, j.filter2) {
			return false
		}
	}
	if cats.ChoiceOnly && !j.choice {
		return false
	}
	return true
}

// rowKey is the displayed-column tuple rows are deduplicated on.
type rowKey struct {
	agency, city, address, window, phone string
	minutes, miles                       float64
	hasLat, hasLon                       bool
	lat, lon                             float64
}

func keyOf(r model.ResultRow) rowKey {
	k := rowKey{
		agency:  r.Agency,
		city:    r.City,
		address: r.Address,
		window:  r.Window,
		phone:   r.Phone,
		minutes: r.TravelMinutes,
		miles:   r.DistanceMiles,
	}
	if r.Latitude != nil {
		k.hasLat, k.lat = true, *r.Latitude
	}
	if r.Longitude != nil {
		k.hasLon, k.lon = true, *r.Longitude
	}
	return k
}

func dedupe(in []joined) []model.ResultRow {
	rows := make([]model.ResultRow, 0, len(in))
	for _, j := range in {
		rows = append(rows, j.row)
	}
	return dedupeRows(rows)
}

// dedupeRows keeps the first occurrence of each tuple.
func dedupeRows(rows []model.ResultRow) []model.ResultRow {
	seen := make(map[rowKey]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := keyOf(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
