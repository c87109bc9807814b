package hours

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/tabular"
)

// Window is one schedule row: an agency open during Window on Day of the
// Week-th occurrence in the month. Location fields are optional and only used
// when the travel index lacks them.
type Window struct {
	Agency    string       `validate:"required"`
	Day       time.Weekday `validate:"gte=0,lte=6"`
	Week      int          `validate:"min=1,max=5"`
	Window    string
	Address   string
	City      string
	Phone     string
	Latitude  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `validate:"omitempty,gte=-180,lte=180"`
}

type slot struct {
	day  time.Weekday
	week int
}

// Schedule is an immutable, slot-indexed collection of windows.
type Schedule struct {
	windows []Window
	bySlot  map[slot][]int
}

// NewSchedule indexes windows by weekday and week.
func NewSchedule(windows []Window) *Schedule {
	s := &Schedule{windows: windows, bySlot: make(map[slot][]int)}
	for i, w := range windows {
		k := slot{day: w.Day, week: w.Week}
		s.bySlot[k] = append(s.bySlot[k], i)
	}
	return s
}

// Len returns the number of windows.
func (s *Schedule) Len() int { return len(s.windows) }

// Windows returns a copy of every window in load order.
func (s *Schedule) Windows() []Window {
	out := make([]Window, len(s.windows))
	copy(out, s.windows)
	return out
}

// Candidates returns the non-empty windows for agencies in the set that fall on
// the moment's weekday and week, in load order. No time-of-day check is applied.
func (s *Schedule) Candidates(agencies map[string]bool, m Moment) []Window {
	var out []Window
	for _, i := range s.bySlot[slot{day: m.Weekday, week: m.Week}] {
		w := s.windows[i]
		if w.Window == "" || !agencies[w.Agency] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Open returns the candidate windows whose time range contains the moment.
func (s *Schedule) Open(agencies map[string]bool, m Moment) []Window {
	var out []Window
	for _, w := range s.Candidates(agencies, m) {
		if IsOpen(m.Clock, w.Window) {
			out = append(out, w)
		}
	}
	return out
}

// Load validates an hours table into a Schedule. The agency, day, week and
// window columns are required; rows with an unknown day or an out-of-range
// week are skipped and reported.
func Load(tbl *tabular.Table) (*Schedule, tabular.Report, error) {
	report := tabular.Report{Source: tbl.Source, Rows: len(tbl.Rows)}

	cols := struct{ agency, day, week, window, address, city, phone, lat, lon int }{
		agency:  tbl.Col("agency", "agency_name"),
		day:     tbl.Col("day"),
		week:    tbl.Col("week"),
		window:  tbl.Col("window", "hours"),
		address: tbl.Col("address"),
		city:    tbl.Col("city"),
		phone:   tbl.Col("phone", "contact", "phone_number"),
		lat:     tbl.Col("latitude", "lat"),
		lon:     tbl.Col("longitude", "lon", "lng"),
	}
	for _, req := range []struct {
		name string
		idx  int
	}{{"agency", cols.agency}, {"day", cols.day}, {"week", cols.week}, {"window", cols.window}} {
		if req.idx < 0 {
			return nil, report, eris.Errorf("hours: %s: missing required column %q", tbl.Source, req.name)
		}
	}

	days := newDayNormalizer()
	validate := validator.New()
	windows := make([]Window, 0, len(tbl.Rows))

	for i, row := range tbl.Rows {
		line := i + 1
		rawDay := tabular.Value(row, cols.day)
		day, ok := days.parse(rawDay)
		if !ok {
			report.Skip(line, fmt.Sprintf("unknown day %q", rawDay))
			continue
		}
		week, err := tabular.ParseInt(tabular.Value(row, cols.week))
		if err != nil {
			report.Skip(line, "week is not an integer")
			continue
		}
		lat, latErr := tabular.ParseOptionalFloat(tabular.Value(row, cols.lat))
		lon, lonErr := tabular.ParseOptionalFloat(tabular.Value(row, cols.lon))
		if latErr != nil || lonErr != nil {
			report.Note(fmt.Sprintf("row %d: unreadable coordinates ignored", line))
			lat, lon = nil, nil
		}

		w := Window{
			Agency:    tabular.Value(row, cols.agency),
			Day:       day,
			Week:      week,
			Window:    tabular.Value(row, cols.window),
			Address:   tabular.Value(row, cols.address),
			City:      tabular.Value(row, cols.city),
			Phone:     tabular.Value(row, cols.phone),
			Latitude:  lat,
			Longitude: lon,
		}
		if strings.EqualFold(w.Window, "nan") {
			w.Window = ""
		}
		if err := validate.Struct(w); err != nil {
			report.Skip(line, err.Error())
			continue
		}
		windows = append(windows, w)
	}

	report.Loaded = len(windows)
	if report.Skipped > 0 {
		zap.L().Warn("hours: skipped schedule rows",
			zap.String("source", tbl.Source),
			zap.Int("skipped", report.Skipped),
		)
	}
	return NewSchedule(windows), report, nil
}
