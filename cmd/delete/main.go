package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/orutra11/strava-data-analysis/internal/storage"
)

func main() {
	activityID := flag.String("activity", "", "Activity id to delete (with its splits)")
	event := flag.String("event", "", "Delete every activity ingested under this event label")
	dbPath := flag.String("db", "out/strava.duckdb", "Path to DuckDB file")
	flag.Parse()

	if *activityID == "" && *event == "" {
		fmt.Fprintf(os.Stderr, "Error: a filter is required (-activity or -event)\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("DB connection failed", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	// Confirm deletion
	fmt.Println("\nDelete:")
	if *activityID != "" {
		fmt.Printf("  activity: %s\n", *activityID)
	}
	if *event != "" {
		fmt.Printf("  event: %s\n", *event)
	}
	fmt.Print("\nAre you sure? (yes/no): ")

	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	if response != "yes" && response != "y" {
		fmt.Println("Cancelled.")
		os.Exit(0)
	}

	if *activityID != "" {
		if err := repo.DeleteActivity(ctx, *activityID); err != nil {
			logger.Error("Delete failed", "activity", *activityID, "err", err)
			os.Exit(1)
		}
		logger.Info("Deleted successfully", "activity", *activityID)
	}

	if *event != "" {
		rowsDeleted, err := repo.DeleteByEvent(ctx, *event)
		if err != nil {
			logger.Error("Delete failed", "event", *event, "err", err)
			os.Exit(1)
		}
		if rowsDeleted == 0 {
			logger.Warn("No activities matched the event label", "event", *event)
		} else {
			logger.Info("Deleted successfully", "event", *event, "rows_deleted", rowsDeleted)
		}
	}
}
