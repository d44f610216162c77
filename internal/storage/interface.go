package storage

import (
	"context"

	"github.com/orutra11/strava-data-analysis/internal/model"
)

type Repository interface {
	Init(ctx context.Context) error
	AthleteIDs(ctx context.Context) (map[string]struct{}, error)
	ActivityIDs(ctx context.Context) (map[string]struct{}, error)
	SaveAthlete(ctx context.Context, athlete model.Athlete) error
	SaveActivity(ctx context.Context, activity model.Activity, splits []model.Split) error
	ExportCSV(ctx context.Context, path string, event string) error
	DeleteActivity(ctx context.Context, id string) error
	Close() error
}
