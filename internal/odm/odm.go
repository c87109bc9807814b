// Package odm indexes the origin-destination travel-time matrix between origin
// tracts (or ZIP codes) and agencies.
package odm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/tabular"
)

// Row is one origin-to-agency travel estimate.
type Row struct {
	GEOID         int64
	HasGEOID      bool
	AgencyName    string   `validate:"required"`
	ZIP           string   `validate:"omitempty,len=5,numeric"`
	TravelMinutes float64  `validate:"gte=0"`
	Miles         float64  `validate:"gte=0"`
	Latitude      *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `validate:"omitempty,gte=-180,lte=180"`
	Address       string
	City          string
	Phone         string
	Filter1       string
	Filter2       string
	Choice        bool
}

// FallbackScope controls what the widened budget searches when the primary
// budget finds nothing.
type FallbackScope string

const (
	// FallbackTract keeps the origin tract constraint and only widens the budget.
	FallbackTract FallbackScope = "tract"
	// FallbackAny drops the origin constraint: every agency within the widened
	// budget of any origin becomes a candidate.
	FallbackAny FallbackScope = "any"
)

// Budget configures the tiered travel-time thresholds in minutes.
type Budget struct {
	PrimaryMinutes  float64
	FallbackMinutes float64
	Scope           FallbackScope
}

// DefaultBudget returns the 20/60 minute tiers with the tract-scoped fallback.
func DefaultBudget() Budget {
	return Budget{PrimaryMinutes: 20, FallbackMinutes: 60, Scope: FallbackTract}
}

// CandidateSet is the travel index's answer for one origin.
type CandidateSet struct {
	Rows          []Row
	Agencies      []string
	Fallback      bool
	BudgetMinutes float64
}

// Has reports whether agency is a candidate.
func (c CandidateSet) Has(agency string) bool {
	_, ok := slices.BinarySearch(c.Agencies, agency)
	return ok
}

// AgencySet returns the candidate names as a set.
func (c CandidateSet) AgencySet() map[string]bool {
	set := make(map[string]bool, len(c.Agencies))
	for _, a := range c.Agencies {
		set[a] = true
	}
	return set
}

// Index is an immutable travel-time table keyed by origin.
type Index struct {
	rows    []Row
	byGEOID map[int64][]int
	byZIP   map[string][]int
}

// NewIndex indexes rows by origin tract and ZIP.
func NewIndex(rows []Row) *Index {
	idx := &Index{
		rows:    rows,
		byGEOID: make(map[int64][]int),
		byZIP:   make(map[string][]int),
	}
	for i, r := range rows {
		if r.HasGEOID {
			idx.byGEOID[r.GEOID] = append(idx.byGEOID[r.GEOID], i)
		}
		if r.ZIP != "" {
			idx.byZIP[r.ZIP] = append(idx.byZIP[r.ZIP], i)
		}
	}
	return idx
}

// Len returns the number of rows.
func (idx *Index) Len() int { return len(idx.rows) }

// ByTract returns agencies within the primary budget of geoid. When there are
// none, the fallback budget is applied with the configured scope and the set is
// flagged.
func (idx *Index) ByTract(geoid int64, b Budget) CandidateSet {
	rows := idx.withinAt(idx.byGEOID[geoid], b.PrimaryMinutes)
	if len(rows) > 0 {
		return newCandidateSet(rows, false, b.PrimaryMinutes)
	}

	switch b.Scope {
	case FallbackAny:
		rows = idx.withinAll(b.FallbackMinutes)
	default:
		rows = idx.withinAt(idx.byGEOID[geoid], b.FallbackMinutes)
	}
	zap.L().Debug("odm: primary budget empty, widened",
		zap.Int64("geoid", geoid),
		zap.String("scope", string(b.Scope)),
		zap.Float64("budget_minutes", b.FallbackMinutes),
		zap.Int("rows", len(rows)),
	)
	return newCandidateSet(rows, true, b.FallbackMinutes)
}

// ByZIP returns every row for the ZIP code; no travel budget applies.
func (idx *Index) ByZIP(zip string) CandidateSet {
	zip = tabular.NormalizeZIP(zip)
	positions := idx.byZIP[zip]
	rows := make([]Row, 0, len(positions))
	for _, i := range positions {
		rows = append(rows, idx.rows[i])
	}
	return newCandidateSet(rows, false, 0)
}

// withinAll returns every row at most budget minutes away.
func (idx *Index) withinAll(budget float64) []Row {
	var out []Row
	for _, r := range idx.rows {
		if r.TravelMinutes <= budget {
			out = append(out, r)
		}
	}
	return out
}

// withinAt filters the rows at positions to those at most budget minutes away.
func (idx *Index) withinAt(positions []int, budget float64) []Row {
	var out []Row
	for _, i := range positions {
		if idx.rows[i].TravelMinutes <= budget {
			out = append(out, idx.rows[i])
		}
	}
	return out
}

func newCandidateSet(rows []Row, fallback bool, budget float64) CandidateSet {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.AgencyName)
	}
	slices.Sort(names)
	return CandidateSet{
		Rows:          rows,
		Agencies:      slices.Compact(names),
		Fallback:      fallback,
		BudgetMinutes: budget,
	}
}

// Facet is a filter_1 value with the filter_2 values seen alongside it.
type Facet struct {
	Filter1 string   `json:"filter_1" yaml:"filter_1"`
	Filter2 []string `json:"filter_2,omitempty" yaml:"filter_2,omitempty"`
}

// Facets lists the category values present in the index, sorted.
func (idx *Index) Facets() []Facet {
	seen := make(map[string]map[string]bool)
	for _, r := range idx.rows {
		if r.Filter1 == "" {
			continue
		}
		if seen[r.Filter1] == nil {
			seen[r.Filter1] = make(map[string]bool)
		}
		if r.Filter2 != "" {
			seen[r.Filter1][r.Filter2] = true
		}
	}
	facets := make([]Facet, 0, len(seen))
	for f1, f2s := range seen {
		f := Facet{Filter1: f1}
		for f2 := range f2s {
			f.Filter2 = append(f.Filter2, f2)
		}
		slices.Sort(f.Filter2)
		facets = append(facets, f)
	}
	slices.SortFunc(facets, func(a, b Facet) int { return strings.Compare(a.Filter1, b.Filter1) })
	return facets
}

// Load validates a travel-time table. A geoid or zip column and the agency,
// travel time and miles columns are required.
func Load(tbl *tabular.Table) (*Index, tabular.Report, error) {
	report := tabular.Report{Source: tbl.Source, Rows: len(tbl.Rows)}

	cols := struct {
		geoid, zip, agency, minutes, miles, lat, lon, address, city, phone, f1, f2, choice int
	}{
		geoid:   tbl.Col("geoid", "origin_geoid"),
		zip:     tbl.Col("zip", "zipcode", "zip_code", "origin_zip"),
		agency:  tbl.Col("agency_name", "agency"),
		minutes: tbl.Col("total_traveltime", "traveltime", "travel_time", "travel_minutes"),
		miles:   tbl.Col("total_miles", "miles", "distance_miles"),
		lat:     tbl.Col("latitude", "lat"),
		lon:     tbl.Col("longitude", "lon", "lng"),
		address: tbl.Col("address"),
		city:    tbl.Col("city"),
		phone:   tbl.Col("phone", "contact", "phone_number"),
		f1:      tbl.Col("filter_1", "filter1"),
		f2:      tbl.Col("filter_2", "filter2"),
		choice:  tbl.Col("choice", "choice_pantry"),
	}
	if cols.geoid < 0 && cols.zip < 0 {
		return nil, report, eris.Errorf("odm: %s: needs a geoid or zip column", tbl.Source)
	}
	for _, req := range []struct {
		name string
		idx  int
	}{{"agency_name", cols.agency}, {"total_traveltime", cols.minutes}, {"total_miles", cols.miles}} {
		if req.idx < 0 {
			return nil, report, eris.Errorf("odm: %s: missing required column %q", tbl.Source, req.name)
		}
	}

	validate := validator.New()
	rows := make([]Row, 0, len(tbl.Rows))

	for i, raw := range tbl.Rows {
		line := i + 1
		r := Row{
			AgencyName: tabular.Value(raw, cols.agency),
			Address:    tabular.Value(raw, cols.address),
			City:       tabular.Value(raw, cols.city),
			Phone:      tabular.Value(raw, cols.phone),
			Filter1:    tabular.Value(raw, cols.f1),
			Filter2:    tabular.Value(raw, cols.f2),
			Choice:     tabular.ParseFlag(tabular.Value(raw, cols.choice)),
		}

		if v := tabular.Value(raw, cols.geoid); v != "" {
			geoid, err := tabular.ParseID(v)
			if err != nil {
				report.Skip(line, fmt.Sprintf("bad geoid %q", v))
				continue
			}
			r.GEOID, r.HasGEOID = geoid, true
		}
		if v := tabular.Value(raw, cols.zip); v != "" {
			r.ZIP = tabular.NormalizeZIP(v)
			if r.ZIP == "" {
				report.Note(fmt.Sprintf("row %d: bad zip %q ignored", line, v))
			}
		}
		if !r.HasGEOID && r.ZIP == "" {
			report.Skip(line, "no origin geoid or zip")
			continue
		}

		var err error
		if r.TravelMinutes, err = tabular.ParseFloat(tabular.Value(raw, cols.minutes)); err != nil {
			report.Skip(line, "travel time is not a number")
			continue
		}
		if r.Miles, err = tabular.ParseFloat(tabular.Value(raw, cols.miles)); err != nil {
			report.Skip(line, "miles is not a number")
			continue
		}
		lat, latErr := tabular.ParseOptionalFloat(tabular.Value(raw, cols.lat))
		lon, lonErr := tabular.ParseOptionalFloat(tabular.Value(raw, cols.lon))
		if latErr != nil || lonErr != nil {
			report.Note(fmt.Sprintf("row %d: unreadable coordinates ignored", line))
		} else {
			r.Latitude, r.Longitude = lat, lon
		}

		if err := validate.Struct(r); err != nil {
			report.Skip(line, err.Error())
			continue
		}
		rows = append(rows, r)
	}

	report.Loaded = len(rows)
	if report.Skipped > 0 {
		zap.L().Warn("odm: skipped travel-time rows",
			zap.String("source", tbl.Source),
			zap.Int("skipped", report.Skipped),
		)
	}
	return NewIndex(rows), report, nil
}
