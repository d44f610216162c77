package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrFormat means a text field did not match its expected shape.
var ErrFormat = errors.New("unexpected text format")

// ErrUnknownMonth means a month token outside the locale table.
var ErrUnknownMonth = errors.New("unknown month name")

// monthIndex maps lowercase Spanish month names to their calendar number.
var monthIndex = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	distanceRe  = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*\S*$`)
	paceFieldRe = regexp.MustCompile(`^(\d+:\d{2})\s*/(\S+)$`)
	elevationRe = regexp.MustCompile(`^(-?\d+)\s*(\S+)$`)
	digitsRe    = regexp.MustCompile(`^\d+$`)
)

// clockPart parses one colon-separated clock component. Digits only: a
// signed part would yield a negative second count downstream, and the
// stored seconds columns are non-negative by contract.
func clockPart(s string) (int, bool) {
	if !digitsRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Duration converts a clock string ("MM:SS" or "HH:MM:SS") to seconds.
// Any other token count, or a non-numeric part, fails with ErrFormat;
// callers that degrade the failure to 0 must log it.
func Duration(text string) (int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	switch len(parts) {
	case 2:
		mm, ok1 := clockPart(parts[0])
		ss, ok2 := clockPart(parts[1])
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("duration %q: %w", text, ErrFormat)
		}
		return mm*60 + ss, nil
	case 3:
		hh, ok1 := clockPart(parts[0])
		mm, ok2 := clockPart(parts[1])
		ss, ok3 := clockPart(parts[2])
		if !ok1 || !ok2 || !ok3 {
			return 0, fmt.Errorf("duration %q: %w", text, ErrFormat)
		}
		return hh*3600 + mm*60 + ss, nil
	default:
		return 0, fmt.Errorf("duration %q: %w", text, ErrFormat)
	}
}

// Pace converts a "M:SS" pace string to seconds per unit.
func Pace(text string) (int, error) {
	before, after, found := strings.Cut(strings.TrimSpace(text), ":")
	if !found {
		return 0, fmt.Errorf("pace %q: %w", text, ErrFormat)
	}
	mm, ok1 := clockPart(before)
	ss, ok2 := clockPart(after)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("pace %q: %w", text, ErrFormat)
	}
	return mm*60 + ss, nil
}

// Date resolves a localized date from its individual tokens. The weekday is
// accepted but unused (the day-of-month and year fix the date). Two-digit
// years are resolved into the 2000s; the source never renders earlier dates.
func Date(weekday, day, monthName, year string) (time.Time, error) {
	_ = weekday
	month, ok := monthIndex[strings.ToLower(strings.TrimSpace(monthName))]
	if !ok {
		return time.Time{}, fmt.Errorf("month %q: %w", monthName, ErrUnknownMonth)
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("day %q: %w", day, ErrFormat)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 0 {
		return time.Time{}, fmt.Errorf("year %q: %w", year, ErrFormat)
	}
	if y < 100 {
		y += 2000
	}
	return time.Date(y, month, d, 0, 0, 0, 0, time.UTC), nil
}

// DistanceNumber strips a trailing unit suffix, normalizes a decimal comma
// to a decimal point and parses the remainder as a float.
func DistanceNumber(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	m := distanceRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("distance %q: %w", text, ErrFormat)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("distance %q: %w", text, ErrFormat)
	}
	return v, nil
}

// SplitPaceField splits a combined pace cell ("4:30 /km") into its pace
// string and unit label.
func SplitPaceField(text string) (string, string, error) {
	m := paceFieldRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", fmt.Errorf("pace field %q: %w", text, ErrFormat)
	}
	return m[1], m[2], nil
}

// ElevationField splits a combined elevation cell ("12 m", "-4 m") into its
// signed value and unit label.
func ElevationField(text string) (int, string, error) {
	m := elevationRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", fmt.Errorf("elevation field %q: %w", text, ErrFormat)
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("elevation field %q: %w", text, ErrFormat)
	}
	return v, m[2], nil
}
