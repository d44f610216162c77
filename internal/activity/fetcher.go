package activity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/orutra11/strava-data-analysis/internal/browser"
	"github.com/orutra11/strava-data-analysis/internal/extract"
	"github.com/orutra11/strava-data-analysis/internal/model"
	"github.com/orutra11/strava-data-analysis/internal/normalize"
)

const (
	activityBaseURL      = "https://www.strava.com/activities/"
	segmentEffortBaseURL = "https://www.strava.com/segment_efforts/"
)

var (
	// An effort link lands on one of two activity URL shapes depending on
	// how the site chooses to anchor the effort.
	effortURLRe       = regexp.MustCompile(`https://www\.strava\.com/activities/(\d+)/segments/(\d+)`)
	effortAnchorURLRe = regexp.MustCompile(`https://www\.strava\.com/activities/(\d+)#(\d+)`)

	dateRe = regexp.MustCompile(`(\S+), (\d{1,2}) de (\S+) de (\d{2,4})`)

	// Anchor hrefs come out of the page verbatim, so root-relative links
	// must be resolved against the site before navigating.
	siteBase = &url.URL{Scheme: "https", Host: "www.strava.com"}
)

// Fetcher loads one activity's detail view and assembles normalized records
// from it.
type Fetcher struct {
	sess   browser.Session
	logger *slog.Logger
}

func NewFetcher(sess browser.Session, logger *slog.Logger) *Fetcher {
	return &Fetcher{sess: sess, logger: logger}
}

// Detail is everything one activity page yields: the athlete who recorded
// it, the normalized activity and its splits in page order. Split surrogate
// ids are left empty for the caller to assign at write time.
type Detail struct {
	Athlete  model.Athlete
	Activity model.Activity
	Splits   []model.Split
}

// Fetch resolves a leaderboard row to its activity overview page and
// normalizes it.
func (f *Fetcher) Fetch(ctx context.Context, row model.LeaderboardRow) (Detail, error) {
	activityID, err := f.resolveActivityID(ctx, row)
	if err != nil {
		return Detail{}, err
	}

	if err := f.sess.Navigate(ctx, activityBaseURL+activityID+"/overview"); err != nil {
		return Detail{}, err
	}
	if _, err := extract.Region(ctx, f.sess, extract.RegionActivityHeader); err != nil {
		return Detail{}, fmt.Errorf("activity %s: %w", activityID, err)
	}
	if _, err := extract.Region(ctx, f.sess, extract.RegionSplitTable); err != nil {
		return Detail{}, fmt.Errorf("activity %s: %w", activityID, err)
	}
	html, err := f.sess.HTML(ctx, "body")
	if err != nil {
		return Detail{}, fmt.Errorf("activity %s: %w", activityID, err)
	}
	page, err := extract.Activity(html)
	if err != nil {
		return Detail{}, fmt.Errorf("activity %s: %w", activityID, err)
	}

	act, err := f.buildActivity(activityID, page)
	if err != nil {
		return Detail{}, err
	}
	splits, err := buildSplits(activityID, act.Distance, page.Splits)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Athlete:  model.Athlete{ID: page.AthleteID, Name: page.AthleteName},
		Activity: act,
		Splits:   splits,
	}, nil
}

// resolveActivityID follows the row's effort link and reads the activity id
// out of the landing URL; when the row has no link the id the leaderboard
// already carries is used.
func (f *Fetcher) resolveActivityID(ctx context.Context, row model.LeaderboardRow) (string, error) {
	if row.EffortLink == "" {
		if row.ActivityID == "" {
			return "", fmt.Errorf("rank %d: no effort link and no activity id", row.Rank)
		}
		return row.ActivityID, nil
	}

	effortURL := strings.TrimSpace(row.EffortLink)
	if !strings.HasPrefix(effortURL, "http") {
		if strings.Contains(effortURL, "segment_efforts") {
			ref, err := url.Parse(effortURL)
			if err != nil {
				return "", fmt.Errorf("effort link %q: %w", row.EffortLink, err)
			}
			effortURL = siteBase.ResolveReference(ref).String()
		} else {
			// A bare effort id, as older pages render it.
			effortURL = segmentEffortBaseURL + strings.TrimPrefix(effortURL, "/")
		}
	}
	if err := f.sess.Navigate(ctx, effortURL); err != nil {
		return "", err
	}
	loc, err := f.sess.Location(ctx)
	if err != nil {
		return "", err
	}
	m := effortURLRe.FindStringSubmatch(loc)
	if m == nil {
		m = effortAnchorURLRe.FindStringSubmatch(loc)
	}
	if m == nil {
		if row.ActivityID != "" {
			f.logger.Warn("effort landing url did not match known shapes, using leaderboard id",
				"url", loc, "activity", row.ActivityID)
			return row.ActivityID, nil
		}
		return "", fmt.Errorf("effort url %q: no activity id", loc)
	}
	return model.NormalizeID(m[1]), nil
}

func (f *Fetcher) buildActivity(activityID string, page extract.ActivityPage) (model.Activity, error) {
	dm := dateRe.FindStringSubmatch(page.DateText)
	if dm == nil {
		return model.Activity{}, fmt.Errorf("activity %s date %q: %w", activityID, page.DateText, normalize.ErrFormat)
	}
	date, err := normalize.Date(dm[1], dm[2], dm[3], dm[4])
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s: %w", activityID, err)
	}

	distance, err := normalize.DistanceNumber(page.DistanceText)
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s: %w", activityID, err)
	}

	// A malformed elapsed time degrades to the 0 sentinel instead of
	// dropping the whole activity; the warning keeps it auditable.
	elapsedSeconds, err := normalize.Duration(page.ElapsedText)
	if err != nil {
		f.logger.Warn("unparsed elapsed time, storing 0",
			"activity", activityID, "text", page.ElapsedText, "err", err)
		elapsedSeconds = 0
	}

	paceStr, paceUnits, err := normalize.SplitPaceField(page.PaceText)
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s: %w", activityID, err)
	}
	paceSeconds, err := normalize.Pace(paceStr)
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s: %w", activityID, err)
	}

	return model.Activity{
		ID:             activityID,
		AthleteID:      page.AthleteID,
		Name:           page.Name,
		Date:           date,
		Distance:       distance,
		ElapsedStr:     page.ElapsedText,
		ElapsedSeconds: elapsedSeconds,
		PaceStr:        paceStr,
		PaceSeconds:    paceSeconds,
		PaceUnits:      paceUnits,
	}, nil
}

func buildSplits(activityID string, totalKm float64, rows []extract.SplitRow) ([]model.Split, error) {
	markers := make([]float64, len(rows))
	for i, r := range rows {
		v, err := normalize.DistanceNumber(r.DistanceText)
		if err != nil {
			return nil, fmt.Errorf("activity %s split %d: %w", activityID, i, err)
		}
		markers[i] = v
	}
	indexes := CorrectMarkers(markers, totalKm)

	splits := make([]model.Split, len(rows))
	for i, r := range rows {
		paceStr, paceUnits, err := normalize.SplitPaceField(r.PaceText)
		if err != nil {
			return nil, fmt.Errorf("activity %s split %d: %w", activityID, i, err)
		}
		paceSeconds, err := normalize.Pace(paceStr)
		if err != nil {
			return nil, fmt.Errorf("activity %s split %d: %w", activityID, i, err)
		}
		elevation, elevationUnits, err := normalize.ElevationField(r.ElevationText)
		if err != nil {
			return nil, fmt.Errorf("activity %s split %d: %w", activityID, i, err)
		}
		splits[i] = model.Split{
			ActivityID:     activityID,
			Index:          indexes[i],
			PaceStr:        paceStr,
			PaceSeconds:    paceSeconds,
			PaceUnits:      paceUnits,
			Elevation:      elevation,
			ElevationUnits: elevationUnits,
		}
	}
	return splits, nil
}

// CorrectMarkers turns raw cumulative distance markers (in kilometers as the
// page renders them) into integer meters. The page renders a fractional
// final remainder as if it were a whole unit ("remaining 0.2 km" shows as
// "20"): when the final marker exceeds the whole-unit activity distance it
// is reinterpreted as a remainder, divided by 100 and stacked onto the
// second-to-last marker so the sequence stays monotonically increasing.
// Existing stored rows depend on this exact rule.
func CorrectMarkers(markers []float64, totalKm float64) []int {
	corrected := make([]float64, len(markers))
	copy(corrected, markers)
	if n := len(corrected); n > 0 {
		last := corrected[n-1]
		if last > math.Trunc(totalKm) {
			remainder := last / 100
			if n > 1 {
				corrected[n-1] = corrected[n-2] + remainder
			} else {
				corrected[n-1] = remainder
			}
		}
	}
	meters := make([]int, len(corrected))
	for i, v := range corrected {
		meters[i] = int(v * 1000)
	}
	return meters
}
