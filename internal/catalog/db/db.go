package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

// DB is the catalog's view of the events table. It never deletes: removing
// an event is the ledger's deletion guard.
type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// GetEvent → one event or database.ErrNotFound
func (d *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event := new(models.Event)
	err := d.Bun.NewSelect().
		Model(event).
		Where("e.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return event, nil
}

// ListEvents → every event, soonest first
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := d.Bun.NewSelect().
		Model(&events).
		Order("e.event_date ASC", "e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, database.Classify(err)
	}
	return events, nil
}

// UpsertEvent → insert, or overwrite every catalog field of an existing id.
// created_at survives an update.
func (d *DB) UpsertEvent(ctx context.Context, event *models.Event) error {
	q := d.Bun.NewInsert().Model(event)
	if event.ID != 0 {
		q = q.On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("description = EXCLUDED.description").
			Set("event_date = EXCLUDED.event_date").
			Set("location = EXCLUDED.location").
			Set("ticket_price = EXCLUDED.ticket_price").
			Set("goal_amount = EXCLUDED.goal_amount").
			Set("current_amount = EXCLUDED.current_amount").
			Set("max_attendees = EXCLUDED.max_attendees").
			Set("is_active = EXCLUDED.is_active").
			Set("is_suspended = EXCLUDED.is_suspended").
			Set("updated_at = EXCLUDED.updated_at")
	}
	if _, err := q.Exec(ctx); err != nil {
		return database.Classify(err)
	}
	return nil
}
