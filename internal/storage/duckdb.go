package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/orutra11/strava-data-analysis/internal/model"
)

type DuckDBRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDuckDBRepo(path string, logger *slog.Logger) (*DuckDBRepo, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	return &DuckDBRepo{db: db, logger: logger}, nil
}

func (r *DuckDBRepo) Init(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS athletes (
		id TEXT PRIMARY KEY,
		name TEXT
	);
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		athlete_id TEXT,
		name TEXT,
		search_for TEXT,
		valid BOOLEAN,
		date DATE,
		distance DOUBLE,
		elapsed_str TEXT,
		elapsed_seconds INTEGER,
		pace_str TEXT,
		pace_seconds INTEGER,
		pace_units TEXT
	);
	CREATE TABLE IF NOT EXISTS splits (
		id TEXT PRIMARY KEY,
		activity_id TEXT,
		"index" INTEGER,
		pace_str TEXT,
		pace_seconds INTEGER,
		pace_units TEXT,
		elevation INTEGER,
		elevation_units TEXT
	);`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *DuckDBRepo) idSet(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT id FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("read %s ids: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// AthleteIDs returns every athlete primary key in the store. The in-memory
// known-set the pipeline keeps is a mirror of this, refreshed once per run.
func (r *DuckDBRepo) AthleteIDs(ctx context.Context) (map[string]struct{}, error) {
	return r.idSet(ctx, "athletes")
}

func (r *DuckDBRepo) ActivityIDs(ctx context.Context) (map[string]struct{}, error) {
	return r.idSet(ctx, "activities")
}

// SaveAthlete inserts the athlete unless its id is already present.
func (r *DuckDBRepo) SaveAthlete(ctx context.Context, a model.Athlete) error {
	query := `INSERT INTO athletes (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Name)
	if err != nil {
		return fmt.Errorf("save athlete %s: %w", a.ID, err)
	}
	return nil
}

// SaveActivity writes an activity and its split batch in a single
// transaction, so a failed split insert never leaves an activity with half
// its splits.
func (r *DuckDBRepo) SaveActivity(ctx context.Context, act model.Activity, splits []model.Split) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activity tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activities
			(id, athlete_id, name, search_for, valid, date, distance,
			 elapsed_str, elapsed_seconds, pace_str, pace_seconds, pace_units)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		act.ID, act.AthleteID, act.Name, act.SearchFor, act.Valid, act.Date,
		act.Distance, act.ElapsedStr, act.ElapsedSeconds, act.PaceStr,
		act.PaceSeconds, act.PaceUnits)
	if err != nil {
		return fmt.Errorf("insert activity %s: %w", act.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO splits
			(id, activity_id, "index", pace_str, pace_seconds, pace_units,
			 elevation, elevation_units)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare split insert: %w", err)
	}
	defer stmt.Close()
	for _, s := range splits {
		_, err := stmt.ExecContext(ctx, s.ID, s.ActivityID, s.Index,
			s.PaceStr, s.PaceSeconds, s.PaceUnits, s.Elevation, s.ElevationUnits)
		if err != nil {
			return fmt.Errorf("insert split %d of activity %s: %w", s.Index, act.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activity %s: %w", act.ID, err)
	}
	return nil
}

// ExportCSV writes the activities for one event label (all of them when the
// label is empty) next to their athletes, ordered by elapsed time.
func (r *DuckDBRepo) ExportCSV(ctx context.Context, path string, event string) error {
	var filters []string
	if event != "" {
		filters = append(filters, fmt.Sprintf("a.search_for = '%s'", strings.ReplaceAll(event, "'", "''")))
	}
	where := ""
	if len(filters) > 0 {
		where = "WHERE " + strings.Join(filters, " AND ")
	}

	query := fmt.Sprintf(`
		COPY (
			SELECT a.id, ath.name AS athlete, a.name, a.search_for, a.valid,
			       a.date, a.distance, a.elapsed_str, a.elapsed_seconds,
			       a.pace_str, a.pace_units
			FROM activities a
			JOIN athletes ath ON ath.id = a.athlete_id
			%s
			ORDER BY a.elapsed_seconds ASC
		) TO '%s' (HEADER, DELIMITER ',');`, where, path)

	_, err := r.db.ExecContext(ctx, query)
	return err
}

// DeleteActivity removes one activity and its splits.
func (r *DuckDBRepo) DeleteActivity(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM splits WHERE activity_id = ?`, id); err != nil {
		return fmt.Errorf("delete splits of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete activity %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteByEvent removes every activity ingested under an event label, with
// their splits.
func (r *DuckDBRepo) DeleteByEvent(ctx context.Context, event string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM splits WHERE activity_id IN (SELECT id FROM activities WHERE search_for = ?)`,
		event); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE search_for = ?`, event)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func (r *DuckDBRepo) Close() error {
	return r.db.Close()
}

func (r *DuckDBRepo) GetDB() *sql.DB {
	return r.db
}
