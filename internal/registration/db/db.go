package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

// LedgerTx is everything the ledger may do inside one atomic unit.
type LedgerTx interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	FindRegistrationByEmail(ctx context.Context, eventID int64, email string) (*models.Registration, error)
	SumTicketCount(ctx context.Context, eventID int64) (int, error)
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	GetRegistration(ctx context.Context, id int64) (*models.Registration, error)
	InsertRegistration(ctx context.Context, reg *models.Registration) error
	DeleteEvent(ctx context.Context, eventID int64) error
	DeleteRegistration(ctx context.Context, id int64) error
}

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// RunInTx runs fn in one transaction. PostgreSQL runs it SERIALIZABLE and
// GetEvent takes a row lock; SQLite gets its ordering from the single
// connection the pool is limited to. Driver errors come back classified.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	pg := database.IsPostgres(d.Bun)
	opts := &sql.TxOptions{}
	if pg {
		opts.Isolation = sql.LevelSerializable
	}

	err := d.Bun.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &ledgerTx{tx: tx, lockRows: pg})
	})
	return database.Classify(err)
}

type ledgerTx struct {
	tx       bun.Tx
	lockRows bool
}

// GetEvent → load an event, locking its row where the dialect allows
func (t *ledgerTx) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	q := t.tx.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1)
	if t.lockRows {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, database.Classify(err)
	}
	return &event, nil
}

// FindRegistrationByEmail → the registration holding (event, email), or database.ErrNotFound
func (t *ledgerTx) FindRegistrationByEmail(ctx context.Context, eventID int64, email string) (*models.Registration, error) {
	var reg models.Registration
	err := t.tx.NewSelect().
		Model(&reg).
		Where("r.event_id = ?", eventID).
		Where("r.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &reg, nil
}

// SumTicketCount → tickets currently allocated to an event
func (t *ledgerTx) SumTicketCount(ctx context.Context, eventID int64) (int, error) {
	var allocated int
	err := t.tx.NewSelect().
		Model((*models.Registration)(nil)).
		ColumnExpr("COALESCE(SUM(r.ticket_count), 0)").
		Where("r.event_id = ?", eventID).
		Scan(ctx, &allocated)
	if err != nil {
		return 0, database.Classify(err)
	}
	return allocated, nil
}

// CountRegistrations → number of registrations depending on an event
func (t *ledgerTx) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	n, err := t.tx.NewSelect().
		Model((*models.Registration)(nil)).
		Where("r.event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, database.Classify(err)
	}
	return n, nil
}

// InsertRegistration → insert and fill in the assigned id
func (t *ledgerTx) InsertRegistration(ctx context.Context, reg *models.Registration) error {
	if _, err := t.tx.NewInsert().Model(reg).Exec(ctx); err != nil {
		return database.Classify(err)
	}
	return nil
}

// DeleteEvent → remove an event row; database.ErrNotFound if nothing was deleted
func (t *ledgerTx) DeleteEvent(ctx context.Context, eventID int64) error {
	res, err := t.tx.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return database.Classify(err)
	}
	return expectOneRow(res, "event", eventID)
}

// GetRegistration → one registration by id inside the unit
func (t *ledgerTx) GetRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	var reg models.Registration
	err := t.tx.NewSelect().
		Model(&reg).
		Where("r.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &reg, nil
}

// DeleteRegistration → remove a registration; database.ErrNotFound if nothing was deleted
func (t *ledgerTx) DeleteRegistration(ctx context.Context, id int64) error {
	res, err := t.tx.NewDelete().
		Model((*models.Registration)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return database.Classify(err)
	}
	return expectOneRow(res, "registration", id)
}

func expectOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return database.Classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", database.ErrNotFound, what, id)
	}
	return nil
}
