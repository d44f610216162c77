package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orutra11/strava-data-analysis/internal/activity"
	"github.com/orutra11/strava-data-analysis/internal/browser"
	"github.com/orutra11/strava-data-analysis/internal/extract"
	"github.com/orutra11/strava-data-analysis/internal/leaderboard"
	"github.com/orutra11/strava-data-analysis/internal/model"
	"github.com/orutra11/strava-data-analysis/internal/storage"
)

// targetCount is the soft cap handed to the paginator: large enough to
// exceed any leaderboard seen in practice, never demanded exactly.
const targetCount = 1000

// Report summarizes one ingestion run.
type Report struct {
	Collected   int
	Ingested    int
	Skipped     int
	Failed      int
	NewAthletes int
}

// Pipeline drives one ingestion run: leaderboard collection, per-candidate
// detail fetches and transactional writes. It is the sole writer of the
// store and the sole owner of the known-id caches.
type Pipeline struct {
	repo   storage.Repository
	sess   browser.Session
	logger *slog.Logger
}

func New(repo storage.Repository, sess browser.Session, logger *slog.Logger) *Pipeline {
	return &Pipeline{repo: repo, sess: sess, logger: logger}
}

// Ingest walks the segment's leaderboard and persists every activity not yet
// in the store. Re-running the same segment is a no-op for everything
// already ingested: candidates are skipped on the activity id before any
// fetch happens. A candidate that fails to fetch or parse is logged and
// skipped; a persistence failure stops the run.
func (p *Pipeline) Ingest(ctx context.Context, segmentID string, expectedDistance float64, eventLabel string) (Report, error) {
	var report Report

	knownAthletes, err := p.repo.AthleteIDs(ctx)
	if err != nil {
		return report, err
	}
	knownActivities, err := p.repo.ActivityIDs(ctx)
	if err != nil {
		return report, err
	}
	p.logger.Info("loaded known ids",
		"athletes", len(knownAthletes), "activities", len(knownActivities))

	collector := leaderboard.NewCollector(p.sess, p.logger.With("segment", segmentID))
	rows, err := collector.Collect(ctx, segmentID, leaderboard.Options{Target: targetCount})
	if err != nil {
		return report, fmt.Errorf("collect leaderboard: %w", err)
	}
	report.Collected = len(rows)

	fetcher := activity.NewFetcher(p.sess, p.logger)
	for _, row := range rows {
		logger := p.logger.With("activity", row.ActivityID, "rank", row.Rank)

		if _, known := knownActivities[row.ActivityID]; known {
			logger.Info("already ingested, skipping")
			report.Skipped++
			continue
		}

		detail, err := fetcher.Fetch(ctx, row)
		if err != nil {
			// One candidate failing to render or parse must not sink
			// the rest of the run.
			if errors.Is(err, extract.ErrRegionNotFound) {
				logger.Warn("activity page did not render, skipping", "err", err)
			} else {
				logger.Warn("fetch failed, skipping", "err", err)
			}
			report.Failed++
			continue
		}

		// The effort link can resolve to a different activity id than the
		// tracking payload carried; the resolved id is the stored key, so
		// it gets its own skip check after the fetch.
		if _, known := knownActivities[detail.Activity.ID]; known {
			logger.Info("resolved to known activity, skipping", "resolved", detail.Activity.ID)
			report.Skipped++
			continue
		}

		detail.Activity.SearchFor = eventLabel
		detail.Activity.Valid = model.DistanceValid(detail.Activity.Distance, expectedDistance)

		if _, known := knownAthletes[detail.Athlete.ID]; !known {
			if err := p.repo.SaveAthlete(ctx, detail.Athlete); err != nil {
				return report, err
			}
			knownAthletes[detail.Athlete.ID] = struct{}{}
			report.NewAthletes++
		}

		for i := range detail.Splits {
			detail.Splits[i].ID = uuid.NewString()
		}
		if err := p.repo.SaveActivity(ctx, detail.Activity, detail.Splits); err != nil {
			return report, err
		}
		knownActivities[detail.Activity.ID] = struct{}{}
		if row.ActivityID != "" {
			knownActivities[row.ActivityID] = struct{}{}
		}
		report.Ingested++
		logger.Info("ingested",
			"athlete", detail.Athlete.ID,
			"splits", len(detail.Splits),
			"valid", detail.Activity.Valid)
	}

	p.logger.Info("ingestion complete",
		"collected", report.Collected,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"new_athletes", report.NewAthletes)
	return report, nil
}
