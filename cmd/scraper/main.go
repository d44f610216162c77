package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orutra11/strava-data-analysis/internal/browser"
	"github.com/orutra11/strava-data-analysis/internal/pipeline"
	"github.com/orutra11/strava-data-analysis/internal/storage"
)

func generateCSVPath(event string, outDir string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(event)), " ", "-")
	filename := fmt.Sprintf("performances-%s-%s.csv", slug, time.Now().Format("20060102"))
	return filepath.Join(outDir, filename)
}

func main() {
	segmentID := flag.String("segment", "", "Segment id whose leaderboard to ingest")
	distance := flag.Float64("distance", 0, "Expected event distance in kilometers")
	event := flag.String("event", "", "Event label stored with each activity")
	dbPath := flag.String("db", "out/strava.duckdb", "Path to DuckDB file")
	outDir := flag.String("outdir", "out", "Output directory for CSV and database")
	debug := flag.Bool("debug", false, "Enable debug logs")
	exportOnly := flag.Bool("export-only", false, "Only export existing data, skip scraping")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	if *event == "" {
		logger.Error("-event is required")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	outPath := generateCSVPath(*event, *outDir)

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("DB connection failed", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Init(ctx); err != nil {
		logger.Error("Schema init failed", "err", err)
		os.Exit(1)
	}

	if *exportOnly {
		logger.Info("Export-only mode enabled, exporting existing data")
		if err := repo.ExportCSV(ctx, outPath, *event); err != nil {
			logger.Error("Export failed", "err", err)
		} else {
			logger.Info("Export successful", "path", outPath)
		}
		return
	}

	if *segmentID == "" || *distance <= 0 {
		logger.Error("-segment and a positive -distance are required")
		os.Exit(1)
	}

	email := os.Getenv("STRAVA_LOGIN_EMAIL")
	password := os.Getenv("STRAVA_LOGIN_PASSWORD")
	if email == "" || password == "" {
		logger.Error("STRAVA_LOGIN_EMAIL and STRAVA_LOGIN_PASSWORD environment variables not set")
		os.Exit(1)
	}

	sess, err := browser.NewChromeSession(ctx, logger)
	if err != nil {
		logger.Error("Browser start failed", "err", err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := sess.Login(ctx, email, password); err != nil {
		logger.Error("Login failed", "err", err)
		os.Exit(1)
	}

	p := pipeline.New(repo, sess, logger.With("event", *event))
	report, err := p.Ingest(ctx, *segmentID, *distance, *event)
	if err != nil {
		logger.Error("Ingestion failed", "err", err,
			"collected", report.Collected,
			"ingested", report.Ingested,
			"skipped", report.Skipped,
			"failed", report.Failed)
		os.Exit(1)
	}

	if err := repo.ExportCSV(ctx, outPath, *event); err != nil {
		logger.Error("Export failed", "err", err)
	} else {
		logger.Info("Export successful", "path", outPath)
	}
}
