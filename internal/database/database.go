package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database, retrying while it comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if cfg.Driver == DriverSQLite {
		log.LogDatabase("CONNECT", "sqlite", cfg.DSN)
		return OpenSQLite(cfg.DSN)
	}

	tries := cfg.ConnectTries
	if tries < 1 {
		tries = 1
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < tries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, tries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		_ = sqldb.Close()
		if i < tries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", tries, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// OpenSQLite opens a SQLite database behind a single connection, so
// transactions run one at a time and ":memory:" stays a single database.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := bunDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = bunDB.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return bunDB, nil
}

// IsPostgres reports whether db talks to PostgreSQL.
func IsPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

// CreateSchema creates the events and registrations tables from the models.
// PostgreSQL deployments use the SQL migrations instead; this path serves
// SQLite, the seed tool and tests.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*models.Event)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = db.NewCreateTable().
		Model((*models.Registration)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE RESTRICT`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Index("registrations_event_email_uidx").
		Unique().
		IfNotExists().
		Column("event_id", "email").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations unique index: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Index("registrations_event_date_idx").
		IfNotExists().
		Column("event_id", "registration_date").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations date index: %w", err)
	}

	return nil
}

// DropSchema removes both tables, dependents first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range []interface{}{(*models.Registration)(nil), (*models.Event)(nil)} {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", m, err)
		}
	}
	return nil
}
