package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ms-registration/internal/catalog"
	catalogdb "ms-registration/internal/catalog/db"
	"ms-registration/internal/config"
	"ms-registration/internal/database"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// seed prepares a development database: schema plus a handful of sample
// charity events. Registrations are never seeded; they only enter through
// the ledger.
func main() {
	reset := flag.Bool("reset", false, "drop the schema before recreating it")
	version := flag.Uint("version", 0, "migrate PostgreSQL to this version instead of the latest")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.NewWriterLogger(os.Stderr)
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		return
	}
	defer db.Close()

	postgres := database.IsPostgres(db)
	runner := migrations.NewRunner(db, cfg.Migrations, log)
	defer runner.Close()

	if *reset {
		fmt.Println("Dropping tables...")
		if postgres {
			err = runner.Down()
		} else {
			err = database.DropSchema(ctx, db)
		}
		if err != nil {
			fmt.Printf("❌ Failed to drop schema: %v\n", err)
			return
		}
	}

	fmt.Println("Creating tables...")
	switch {
	case postgres && *version > 0:
		err = runner.To(*version)
	case postgres:
		err = runner.Up()
	default:
		err = database.CreateSchema(ctx, db)
	}
	if err != nil {
		fmt.Printf("❌ Failed to create schema: %v\n", err)
		return
	}

	fmt.Println("Seeding sample events...")
	svc := catalog.NewService(catalogdb.New(db), log)
	for _, in := range sampleEvents(time.Now().UTC()) {
		event, err := svc.UpsertEvent(ctx, in)
		if err != nil {
			fmt.Printf("❌ Failed to seed event %d: %v\n", in.ID, err)
			return
		}
		fmt.Printf("  event %d: %s (%d places)\n", event.ID, event.Title, event.MaxAttendees)
	}

	fmt.Println("✅ Done.")
}

func sampleEvents(now time.Time) []models.EventInput {
	return []models.EventInput{
		{
			ID:           1,
			Title:        "Riverside 5K Fun Run",
			Description:  "Family run raising money for the local food bank.",
			EventDate:    now.AddDate(0, 1, 0),
			Location:     "Riverside Park",
			TicketPrice:  15,
			GoalAmount:   10000,
			MaxAttendees: 300,
			IsActive:     true,
		},
		{
			ID:           2,
			Title:        "Winter Gala Dinner",
			Description:  "Black-tie dinner and auction for the children's hospice.",
			EventDate:    now.AddDate(0, 2, 0),
			Location:     "Grand Hotel Ballroom",
			TicketPrice:  85,
			GoalAmount:   50000,
			MaxAttendees: 120,
			IsActive:     true,
		},
		{
			ID:           3,
			Title:        "Community Quiz Night",
			EventDate:    now.AddDate(0, 0, 14),
			Location:     "St. Mary's Hall",
			TicketPrice:  5,
			GoalAmount:   1500,
			MaxAttendees: 60,
			IsActive:     true,
		},
		{
			ID:           4,
			Title:        "Beach Clean-up (postponed)",
			EventDate:    now.AddDate(0, 3, 0),
			Location:     "North Beach",
			MaxAttendees: 40,
			IsActive:     true,
			IsSuspended:  true,
		},
	}
}
