package tabular

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseID normalizes an integer identifier such as a GEOID. Both "37183050100"
// and float renderings like "3.71830501e+10" or "37183050100.0" are accepted.
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("tabular: empty identifier")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "tabular: parse identifier %q", s)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, eris.Errorf("tabular: identifier %q is not integral", s)
	}
	return int64(f), nil
}

// ParseInt parses a small integer that may have been exported as a float ("1.0").
func ParseInt(s string) (int, error) {
	id, err := ParseID(s)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// ParseFloat parses a required real number.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "tabular: parse number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("tabular: number %q is not finite", s)
	}
	return f, nil
}

// ParseOptionalFloat returns nil for empty or NaN cells.
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	f, err := ParseFloat(s)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFlag reads a boolean-like cell: 1, true, yes, y, t (any case) are true.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true
	}
	return false
}

// NormalizeZIP trims a ZIP code to its five-digit form, restoring leading zeros
// lost by numeric exports. It returns "" when s is not a ZIP.
func NormalizeZIP(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".0")
	if s == "" || len(s) > 5 {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return strings.Repeat("0", 5-len(s)) + s
}
