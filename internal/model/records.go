package model

import (
	"math"
	"strings"
	"time"
)

// Athlete is one site user. ID is the site's athlete id, kept as an opaque
// decimal string so large numeric ids never round-trip through a float.
type Athlete struct {
	ID   string // Primary Key
	Name string
}

// Activity is one recorded effort fetched from an activity page.
type Activity struct {
	ID             string // Primary Key, site activity id
	AthleteID      string
	Name           string
	SearchFor      string // event label this ingestion run was searching for
	Valid          bool
	Date           time.Time // calendar date, midnight UTC
	Distance       float64   // kilometers
	ElapsedStr     string
	ElapsedSeconds int
	PaceStr        string
	PaceSeconds    int
	PaceUnits      string
}

// Split is one partial-distance timing marker within an activity.
type Split struct {
	ID             string // surrogate UUID
	ActivityID     string
	Index          int // cumulative distance marker, meters
	PaceStr        string
	PaceSeconds    int
	PaceUnits      string
	Elevation      int // signed, negative means descent
	ElevationUnits string
}

// LeaderboardRow is one ranked candidate from a segment's results page.
type LeaderboardRow struct {
	EffortLink      string
	AthleteID       string
	ActivityID      string
	SegmentEffortID string
	Rank            int
}

// DistanceValid reports whether a measured distance is within 5% of the
// expected event distance.
func DistanceValid(measured, expected float64) bool {
	if expected == 0 {
		return false
	}
	return math.Abs(measured-expected)/expected < 0.05
}

// NormalizeID reduces a site identifier to plain decimal-string form:
// locale grouping removed, leading zeros stripped. Identity comparisons
// downstream are string-exact, so every id must pass through here once.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}
