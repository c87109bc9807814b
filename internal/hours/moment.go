package hours

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Moment is the (weekday, week-of-month, time-of-day) a search checks openness for.
type Moment struct {
	Weekday time.Weekday `json:"weekday"`
	Week    int          `json:"week"`
	Clock   Clock        `json:"clock"`
}

// NewMoment derives a Moment from a wall-clock time.
func NewMoment(t time.Time) Moment {
	return Moment{
		Weekday: t.Weekday(),
		Week:    WeekOfMonth(t.Day()),
		Clock:   ClockOf(t),
	}
}

// WeekOfMonth returns the 1-based occurrence of a weekday within its month:
// days 1-7 are week 1, 8-14 week 2, and 29-31 week 5.
func WeekOfMonth(dayOfMonth int) int {
	return (dayOfMonth-1)/7 + 1
}

func (m Moment) String() string {
	return fmt.Sprintf("%s week %d %s", m.Weekday, m.Week, m.Clock)
}

var weekdays = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sun":       time.Sunday,
	"Mon":       time.Monday,
	"Tue":       time.Tuesday,
	"Tues":      time.Tuesday,
	"Wed":       time.Wednesday,
	"Thu":       time.Thursday,
	"Thur":      time.Thursday,
	"Thurs":     time.Thursday,
	"Fri":       time.Friday,
	"Sat":       time.Saturday,
}

// dayNormalizer title-cases weekday names. A cases.Caser is stateful, so each
// loader owns one.
type dayNormalizer struct {
	caser cases.Caser
}

func newDayNormalizer() *dayNormalizer {
	return &dayNormalizer{caser: cases.Title(language.English)}
}

func (n *dayNormalizer) parse(s string) (time.Weekday, bool) {
	name := n.caser.String(strings.ToLower(strings.TrimSpace(s)))
	name = strings.TrimSuffix(name, ".")
	d, ok := weekdays[name]
	return d, ok
}

// ParseWeekday parses a weekday name in any case, full or abbreviated.
func ParseWeekday(s string) (time.Weekday, bool) {
	return newDayNormalizer().parse(s)
}
