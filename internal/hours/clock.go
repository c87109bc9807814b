// Package hours matches a moment against agency open-hours windows.
package hours

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day in minutes since midnight.
type Clock int

// ClockOf returns the time of day of t, dropping seconds.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// RangeSeparator is the canonical separator between window start and end.
const RangeSeparator = "–"

var (
	meridiemLayouts = []string{"3:04pm", "3:04:05pm", "3pm"}
	dayLayouts      = []string{"15:04", "15:04:05", "15"}
)

// ParseClock parses a free-form time of day such as "9", "9am", "9:30 A.M.",
// "0930", "13:30", "13:30:00", "noon" or "midnight".
func ParseClock(s string) (Clock, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Join(strings.Fields(s), "")

	switch s {
	case "":
		return 0, false
	case "noon":
		return 12 * 60, true
	case "midnight":
		return 0, true
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "am"), strings.HasSuffix(s, "pm"):
		meridiem = s[len(s)-2:]
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "a"), strings.HasSuffix(s, "p"):
		meridiem = s[len(s)-1:] + "m"
		s = s[:len(s)-1]
	}

	// Compact "930" and "1330" forms.
	if (len(s) == 3 || len(s) == 4) && allDigits(s) {
		s = s[:len(s)-2] + ":" + s[len(s)-2:]
	}

	layouts := dayLayouts
	if meridiem != "" {
		s += meridiem
		layouts = meridiemLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), true
		}
	}
	return 0, false
}

// ParseWindow splits a window string such as "9:00 AM - 12:00 PM" into its
// start and end clocks. ASCII hyphens are treated as the range separator.
func ParseWindow(window string) (start, end Clock, ok bool) {
	parts := strings.Split(strings.ReplaceAll(window, "-", RangeSeparator), RangeSeparator)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, okStart := ParseClock(parts[0])
	end, okEnd := ParseClock(parts[1])
	if !okStart || !okEnd {
		return 0, 0, false
	}
	return start, end, true
}

// IsOpen reports whether t falls inside window. Windows whose start is after
// their end wrap past midnight. Malformed windows are never open.
func IsOpen(t Clock, window string) bool {
	start, end, ok := ParseWindow(window)
	if !ok {
		return false
	}
	if start <= end {
		return start <= t && t <= end
	}
	return t >= start || t <= end
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
