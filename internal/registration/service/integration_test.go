//go:build integration

package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"ms-registration/internal/config"
	"ms-registration/internal/database"
	"ms-registration/internal/database/migrations"
	regdb "ms-registration/internal/registration/db"
	"ms-registration/internal/registration/service"
)

// setupPostgresLedger starts PostgreSQL, applies the migrations and returns
// a ledger running at the isolation level used in production.
func setupPostgresLedger(t *testing.T) (*service.LedgerService, *regdb.DB) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("charity_events"),
		tcpostgres.WithUsername("charity"),
		tcpostgres.WithPassword("charity"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	bunDB, err := database.Open(ctx, config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		DSN:          dsn,
		MaxOpenConns: 20,
		MaxIdleConns: 20,
		MaxLifetime:  time.Minute,
		ConnectTries: 5,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunDB.Close() })

	runner := migrations.NewRunner(bunDB, config.MigrationsConfig{Dir: "../../../migrations"}, nil)
	require.NoError(t, runner.Up())

	store := regdb.New(bunDB)
	ledger := service.NewLedgerService(store, config.LedgerConfig{
		MaxAttempts:     10,
		RetryInitial:    5 * time.Millisecond,
		RetryMax:        100 * time.Millisecond,
		OperationBudget: 30 * time.Second,
	}, nil)
	return ledger, store
}

func TestPostgres_ConcurrentAdmissionNeverOversubscribes(t *testing.T) {
	ledger, store := setupPostgresLedger(t)
	event := seedEvent(t, store.Bun, 10)

	const attempts = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := ledger.Register(context.Background(), request(event.ID, fmt.Sprintf("pg%d@example.org", n), 1))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case service.KindOf(err) == service.KindInsufficientCapacity:
				full++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 10, admitted)
	assert.Equal(t, attempts-10, full)
	sum, count := allocated(t, store, event.ID)
	assert.Equal(t, 10, sum)
	assert.Equal(t, 10, count)
}

func TestPostgres_ConcurrentDuplicatesSingleWinner(t *testing.T) {
	ledger, store := setupPostgresLedger(t)
	event := seedEvent(t, store.Bun, 100)

	const attempts = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int64
		dupIDs  []int64
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := ledger.Register(context.Background(), request(event.ID, "same@example.org", 1))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, reg.ID)
				return
			}
			var e *service.Error
			if assert.ErrorAs(t, err, &e) && assert.Equal(t, service.KindDuplicateRegistration, e.Kind) {
				dupIDs = append(dupIDs, e.ExistingID)
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Len(t, dupIDs, attempts-1)
	for _, id := range dupIDs {
		assert.Equal(t, winners[0], id)
	}
}

func TestPostgres_DeletionGuardRacesAdmission(t *testing.T) {
	ledger, store := setupPostgresLedger(t)
	event := seedEvent(t, store.Bun, 5)

	var (
		wg        sync.WaitGroup
		regErr    error
		deleteErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, regErr = ledger.Register(context.Background(), request(event.ID, "racer@example.org", 1))
	}()
	go func() {
		defer wg.Done()
		deleteErr = ledger.DeleteEvent(context.Background(), event.ID)
	}()
	wg.Wait()

	// Exactly one order of the two units is observable.
	if regErr == nil {
		assert.ErrorIs(t, deleteErr, service.ErrHasDependents)
		sum, _ := allocated(t, store, event.ID)
		assert.Equal(t, 1, sum)
	} else {
		assert.NoError(t, deleteErr)
		assert.ErrorIs(t, regErr, service.ErrEventNotFound)
	}
}
