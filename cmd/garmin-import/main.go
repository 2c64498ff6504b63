// garmin-import backfills a user's activity history from a local CSV export.
// Intended for one-off operator use against a real project.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"

	shared "github.com/dylannguyen2/annas-app-sub001/pkg"
	"github.com/dylannguyen2/annas-app-sub001/pkg/bootstrap"
	"github.com/dylannguyen2/annas-app-sub001/pkg/importer"
	"github.com/dylannguyen2/annas-app-sub001/pkg/infrastructure/database"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
)

func main() {
	userID := flag.String("user", "", "owner id to import activities for")
	file := flag.String("file", "", "path to the CSV export")
	project := flag.String("project", "", "GCP project id (default: env / built-in)")
	flag.Parse()

	if *userID == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: garmin-import -user <owner-id> -file <export.csv> [-project <id>]")
		os.Exit(2)
	}

	bootstrap.InitLogger()
	logger := bootstrap.NewLogger("garmin-import", true)

	projectID := *project
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		projectID = shared.ProjectID
	}

	ctx := context.Background()
	fsClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		logger.Error("Firestore init failed", "error", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("Failed to open export", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	store := database.NewFirestoreAdapter(fsClient)
	imp := importer.New(reconcile.New(store), logger)

	summary, err := imp.Import(ctx, *userID, f)
	if err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("rows: %d  imported: %d  skipped: %d  errors: %d\n",
		summary.Total, summary.Imported, summary.Skipped, len(summary.Errors))
	for _, rowErr := range summary.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Err)
	}
	if len(summary.Errors) > 0 {
		os.Exit(1)
	}
}
