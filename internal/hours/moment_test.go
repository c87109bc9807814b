package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekOfMonth(t *testing.T) {
	tests := map[int]int{1: 1, 7: 1, 8: 2, 14: 2, 15: 3, 22: 4, 28: 4, 29: 5, 31: 5}
	for day, want := range tests {
		assert.Equal(t, want, WeekOfMonth(day), "day %d", day)
	}
}

func TestNewMoment(t *testing.T) {
	// 2025-06-02 is the first Monday of June.
	m := NewMoment(time.Date(2025, 6, 2, 12, 0, 45, 0, time.UTC))
	assert.Equal(t, time.Monday, m.Weekday)
	assert.Equal(t, 1, m.Week)
	assert.Equal(t, hm(12, 0), m.Clock)
	assert.Equal(t, "Monday week 1 12:00", m.String())

	m = NewMoment(time.Date(2025, 5, 31, 23, 15, 0, 0, time.UTC))
	assert.Equal(t, time.Saturday, m.Weekday)
	assert.Equal(t, 5, m.Week)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"Monday":     time.Monday,
		" monday ":   time.Monday,
		"MONDAY":     time.Monday,
		"wednesday":  time.Wednesday,
		"Thurs":      time.Thursday,
		"sat.":       time.Saturday,
	} {
		got, ok := ParseWeekday(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseWeekday("Funday")
	assert.False(t, ok)
}
