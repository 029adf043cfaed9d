package db

import (
	"context"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

// ---------------- READS ----------------
// Reads run outside the ledger transaction and only ever see committed rows.

// ListByEvent → every registration of an event, newest first
func (d *DB) ListByEvent(ctx context.Context, eventID int64) ([]models.Registration, error) {
	regs := []models.Registration{}
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("r.event_id = ?", eventID).
		Order("r.registration_date DESC", "r.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, database.Classify(err)
	}
	return regs, nil
}

// ListRegistrations → one page across all events (or one event) plus the total row count
func (d *DB) ListRegistrations(ctx context.Context, eventID *int64, limit, offset int) ([]models.Registration, int, error) {
	regs := []models.Registration{}
	q := d.Bun.NewSelect().
		Model(&regs).
		Order("r.registration_date DESC", "r.id DESC").
		Limit(limit).
		Offset(offset)
	if eventID != nil {
		q = q.Where("r.event_id = ?", *eventID)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	return regs, total, nil
}

// GetRegistration → one registration by id, or database.ErrNotFound
func (d *DB) GetRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("r.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &reg, nil
}
