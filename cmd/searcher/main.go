package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/orutra11/strava-data-analysis/internal/storage"
)

func main() {
	dbPath := flag.String("db", "out/strava.duckdb", "Path to DuckDB file")
	event := flag.String("event", "", "Filter by event label")
	athlete := flag.String("athlete", "", "Filter by athlete name (case-insensitive contains)")
	validOnly := flag.Bool("valid", false, "Only activities within 5% of the event distance")
	minDistance := flag.Float64("min-distance", 0, "Minimum activity distance in kilometers")
	outPath := flag.String("out", "out/search_results.csv", "Output CSV path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	where := []string{"1=1"}
	if *event != "" {
		where = append(where, fmt.Sprintf("a.search_for = '%s'", strings.ReplaceAll(*event, "'", "''")))
	}
	if *athlete != "" {
		where = append(where, fmt.Sprintf("lower(ath.name) LIKE '%%%s%%'", strings.ToLower(strings.ReplaceAll(*athlete, "'", "''"))))
	}
	if *validOnly {
		where = append(where, "a.valid = TRUE")
	}
	if *minDistance > 0 {
		where = append(where, fmt.Sprintf("a.distance >= %f", *minDistance))
	}

	query := fmt.Sprintf(`COPY (
		SELECT a.id, ath.name AS athlete, a.name, a.search_for, a.valid, a.date,
		       a.distance, a.elapsed_str, a.elapsed_seconds, a.pace_str, a.pace_units
		FROM activities a
		JOIN athletes ath ON ath.id = a.athlete_id
		WHERE %s
		ORDER BY a.elapsed_seconds ASC
	) TO '%s' (HEADER, DELIMITER ',');`,
		strings.Join(where, " AND "),
		*outPath,
	)

	_, err = repo.GetDB().ExecContext(ctx, query)
	if err != nil {
		logger.Error("Search failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Search complete", "output", *outPath)
}
