package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/catalog/db"
	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	bunDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunDB.Close() })
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	return db.New(bunDB)
}

func newEvent(id int64, title string, in time.Duration) *models.Event {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Event{
		ID:           id,
		Title:        title,
		EventDate:    now.Add(in),
		MaxAttendees: 100,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUpsertEvent_InsertAndUpdate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	original := newEvent(42, "Charity Run", 48*time.Hour)
	require.NoError(t, store.UpsertEvent(ctx, original))

	changed := newEvent(42, "Charity Run (moved)", 72*time.Hour)
	changed.MaxAttendees = 250
	changed.IsSuspended = true
	changed.CreatedAt = original.CreatedAt.Add(time.Hour)
	require.NoError(t, store.UpsertEvent(ctx, changed))

	got, err := store.GetEvent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Charity Run (moved)", got.Title)
	assert.Equal(t, 250, got.MaxAttendees)
	assert.True(t, got.IsSuspended)
	assert.True(t, got.CreatedAt.Equal(original.CreatedAt), "created_at must survive an update")

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpsertEvent_AssignsID(t *testing.T) {
	store := setupTestDB(t)

	event := newEvent(0, "Quiz Night", time.Hour)
	require.NoError(t, store.UpsertEvent(context.Background(), event))
	assert.NotZero(t, event.ID)
}

func TestGetEvent_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetEvent(context.Background(), 7)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestListEvents_OrderedByDate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEvent(ctx, newEvent(1, "Later", 72*time.Hour)))
	require.NoError(t, store.UpsertEvent(ctx, newEvent(2, "Sooner", 24*time.Hour)))

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Sooner", events[0].Title)
	assert.Equal(t, "Later", events[1].Title)
}
