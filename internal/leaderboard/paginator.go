package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/orutra11/strava-data-analysis/internal/browser"
	"github.com/orutra11/strava-data-analysis/internal/extract"
	"github.com/orutra11/strava-data-analysis/internal/model"
)

const segmentBaseURL = "https://www.strava.com/segments/"

const nextControlSelector = `li.next_page a`

// ErrIncompletePagination means the leaderboard ran out of pages before the
// requested count was reached and the caller demanded an exact count.
var ErrIncompletePagination = errors.New("leaderboard exhausted before target count")

// Options controls a collection run. Target is a soft cap unless Exact is
// set, in which case falling short is an error.
type Options struct {
	Target int
	Exact  bool
}

// Collector walks a segment's paginated leaderboard and accumulates ranked
// candidate rows.
type Collector struct {
	sess   browser.Session
	logger *slog.Logger
}

func NewCollector(sess browser.Session, logger *slog.Logger) *Collector {
	return &Collector{sess: sess, logger: logger}
}

// Collect navigates to the segment's leaderboard and extracts pages until
// the target count is reached or pagination is exhausted. A region timeout
// anywhere during collection aborts the whole run: a partial leaderboard
// whose first page never rendered is not usable.
func (c *Collector) Collect(ctx context.Context, segmentID string, opts Options) ([]model.LeaderboardRow, error) {
	if err := c.sess.Navigate(ctx, segmentBaseURL+segmentID); err != nil {
		return nil, err
	}

	var rows []model.LeaderboardRow
	pageNum := 1
	for {
		html, err := extract.Region(ctx, c.sess, extract.RegionLeaderboard)
		if err != nil {
			return nil, fmt.Errorf("leaderboard page %d: %w", pageNum, err)
		}
		page, err := extract.Leaderboard(html)
		if err != nil {
			return nil, fmt.Errorf("leaderboard page %d: %w", pageNum, err)
		}
		rows = append(rows, page.Rows...)
		c.logger.Debug("extracted leaderboard page",
			"segment", segmentID, "page", pageNum, "rows", len(page.Rows), "total", len(rows))

		if len(rows) >= opts.Target {
			return rows[:min(len(rows), opts.Target)], nil
		}
		if !page.HasNext {
			break
		}
		if err := c.sess.Click(ctx, nextControlSelector); err != nil {
			return nil, fmt.Errorf("advance to page %d: %w", pageNum+1, err)
		}
		if err := c.sess.WaitHidden(ctx, extract.LoadingSelector, extract.RegionTimeout); err != nil {
			return nil, fmt.Errorf("page %d loading indicator: %w", pageNum+1, extract.ErrRegionNotFound)
		}
		pageNum++
	}

	if opts.Exact && len(rows) < opts.Target {
		return rows, fmt.Errorf("got %d of %d rows: %w", len(rows), opts.Target, ErrIncompletePagination)
	}
	c.logger.Info("leaderboard collected", "segment", segmentID, "rows", len(rows), "pages", pageNum)
	return rows, nil
}
