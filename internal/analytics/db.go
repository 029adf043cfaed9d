package analytics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// GetStats aggregates the whole registrations table in one statement
func (db *DB) GetStats(ctx context.Context) (*models.RegistrationStats, error) {
	var stats models.RegistrationStats
	err := db.bun.NewRaw(`
		SELECT
			COUNT(*) AS total_registrations,
			COALESCE(SUM(ticket_count), 0) AS total_tickets,
			COUNT(DISTINCT email) AS unique_attendees,
			COUNT(DISTINCT event_id) AS events_with_registrations
		FROM
			registrations
	`).Scan(ctx, &stats)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &stats, nil
}

// GetEvent loads a single catalog entry, or database.ErrNotFound
func (db *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	event := new(models.Event)
	err := db.bun.NewSelect().
		Model(event).
		Where("e.id = ?", eventID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return event, nil
}

// RegistrationDay is one raw row used to build the daily breakdown
type RegistrationDay struct {
	RegistrationDate time.Time `bun:"registration_date"`
	TicketCount      int       `bun:"ticket_count"`
}

// GetRegistrationDays returns date and ticket count of every registration of
// an event, oldest first.
func (db *DB) GetRegistrationDays(ctx context.Context, eventID int64) ([]RegistrationDay, error) {
	days := []RegistrationDay{}
	err := db.bun.NewSelect().
		ColumnExpr("r.registration_date").
		ColumnExpr("r.ticket_count").
		TableExpr("registrations AS r").
		Where("r.event_id = ?", eventID).
		OrderExpr("r.registration_date ASC, r.id ASC").
		Scan(ctx, &days)
	if err != nil {
		return nil, database.Classify(err)
	}
	return days, nil
}
