package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/orutra11/strava-data-analysis/internal/browser"
	"github.com/orutra11/strava-data-analysis/internal/model"
)

// Logical page regions. The concrete selectors are a site-coupling detail
// kept local to this package.
const (
	RegionLeaderboard    = "leaderboard"
	RegionActivityHeader = "activity-header"
	RegionSplitTable     = "split-table"
)

var regionSelectors = map[string]string{
	RegionLeaderboard:    `div#results`,
	RegionActivityHeader: `section#heading`,
	RegionSplitTable:     `div.mile-splits`,
}

const (
	// LoadingSelector is the leaderboard's loading indicator; pagination
	// waits for it to clear before re-extracting.
	LoadingSelector = `div#results .spinner`

	effortCellSelector = `td[data-tracking-element="leaderboard_effort"] a`
	trackingAttr       = `data-tracking-properties`
	nextPageSelector   = `li.next_page`
)

// ErrRegionNotFound means a required page region did not appear within the
// bounded wait.
var ErrRegionNotFound = errors.New("page region not found")

// RegionTimeout bounds every wait for a page region.
const RegionTimeout = 60 * time.Second

var athleteHrefRe = regexp.MustCompile(`athletes/(\d+)`)

// Region blocks until the named region is visible, then returns its rendered
// HTML. A wait timeout is reported as ErrRegionNotFound. Extraction is
// read-only; page state is untouched.
func Region(ctx context.Context, sess browser.Session, region string) (string, error) {
	sel, ok := regionSelectors[region]
	if !ok {
		return "", fmt.Errorf("unknown region %q", region)
	}
	if err := sess.WaitVisible(ctx, sel, RegionTimeout); err != nil {
		return "", fmt.Errorf("region %s (%s): %w", region, sel, ErrRegionNotFound)
	}
	return sess.HTML(ctx, sel)
}

// LeaderboardPage is one extracted page of segment results.
type LeaderboardPage struct {
	Rows    []model.LeaderboardRow
	HasNext bool
}

type trackingProps struct {
	AthleteID       json.Number `json:"athlete_id"`
	ActivityID      json.Number `json:"activity_id"`
	SegmentEffortID json.Number `json:"segment_effort_id"`
	Rank            json.Number `json:"rank"`
}

// Leaderboard parses a rendered results region. Row identities come from the
// tracking attribute each row carries, not from the display text: the site
// renders ids with locale grouping, while the tracking payload holds them
// raw.
func Leaderboard(html string) (LeaderboardPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LeaderboardPage{}, fmt.Errorf("parse leaderboard html: %w", err)
	}

	var page LeaderboardPage
	var rowErr error
	doc.Find("table tbody tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		attr, ok := tr.Attr(trackingAttr)
		if !ok {
			// Header or decoration rows carry no tracking payload.
			return true
		}
		var props trackingProps
		if err := json.Unmarshal([]byte(attr), &props); err != nil {
			rowErr = fmt.Errorf("row %d tracking payload: %w", i, err)
			return false
		}
		rank, err := props.Rank.Int64()
		if err != nil {
			rowErr = fmt.Errorf("row %d rank %q: %w", i, props.Rank, err)
			return false
		}
		link := tr.Find(effortCellSelector).First()
		href, _ := link.Attr("href")
		page.Rows = append(page.Rows, model.LeaderboardRow{
			EffortLink:      href,
			AthleteID:       model.NormalizeID(props.AthleteID.String()),
			ActivityID:      model.NormalizeID(props.ActivityID.String()),
			SegmentEffortID: model.NormalizeID(props.SegmentEffortID.String()),
			Rank:            int(rank),
		})
		return true
	})
	if rowErr != nil {
		return LeaderboardPage{}, rowErr
	}

	next := doc.Find(nextPageSelector)
	page.HasNext = next.Length() > 0 && !next.HasClass("disabled")
	return page, nil
}

// SplitRow is one raw row of an activity's split table, before
// normalization.
type SplitRow struct {
	DistanceText  string
	PaceText      string
	ElevationText string
}

// ActivityPage is the raw field set extracted from an activity overview
// page.
type ActivityPage struct {
	Name         string
	AthleteID    string
	AthleteName  string
	DateText     string
	DistanceText string
	ElapsedText  string
	PaceText     string
	Splits       []SplitRow
}

// Activity parses a rendered activity overview page body into its raw field
// set: the heading stats, the date element, the athlete link and the split
// table rows in page order.
func Activity(html string) (ActivityPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ActivityPage{}, fmt.Errorf("parse activity html: %w", err)
	}

	var page ActivityPage
	page.Name = strings.TrimSpace(doc.Find(".activity-name").First().Text())
	page.DateText = strings.TrimSpace(doc.Find("div.details-container time").First().Text())

	athlete := doc.Find(`section#heading header a[href*="athletes"]`).First()
	if athlete.Length() == 0 {
		return ActivityPage{}, fmt.Errorf("athlete link: %w", ErrRegionNotFound)
	}
	page.AthleteName = strings.TrimSpace(athlete.Text())
	href, _ := athlete.Attr("href")
	m := athleteHrefRe.FindStringSubmatch(href)
	if m == nil {
		return ActivityPage{}, fmt.Errorf("athlete href %q: no id", href)
	}
	page.AthleteID = model.NormalizeID(m[1])

	stats := doc.Find(`section#heading div[class*="activity-stats"] li`)
	if stats.Length() < 3 {
		return ActivityPage{}, fmt.Errorf("activity stats: want 3 items, got %d", stats.Length())
	}
	statText := func(i int) string {
		s := stats.Eq(i)
		if strong := s.Find("strong").First(); strong.Length() > 0 {
			return strings.TrimSpace(strong.Text())
		}
		line, _, _ := strings.Cut(strings.TrimSpace(s.Text()), "\n")
		return strings.TrimSpace(line)
	}
	page.DistanceText = statText(0)
	page.ElapsedText = statText(1)
	page.PaceText = statText(2)

	doc.Find("div.mile-splits table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		page.Splits = append(page.Splits, SplitRow{
			DistanceText:  strings.TrimSpace(cells.Eq(0).Text()),
			PaceText:      strings.TrimSpace(cells.Eq(1).Text()),
			ElevationText: strings.TrimSpace(cells.Eq(2).Text()),
		})
	})

	return page, nil
}
