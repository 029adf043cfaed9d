package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/catalog"
	catalogdb "ms-registration/internal/catalog/db"
	"ms-registration/internal/database"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/service"
)

func setupCatalog(t *testing.T) *catalog.Service {
	t.Helper()

	bunDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunDB.Close() })
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	return catalog.NewService(catalogdb.New(bunDB), nil)
}

func validInput(id int64) models.EventInput {
	return models.EventInput{
		ID:           id,
		Title:        "Bake Sale",
		EventDate:    time.Now().Add(72 * time.Hour),
		Location:     "Town Hall",
		TicketPrice:  5,
		GoalAmount:   1000,
		MaxAttendees: 80,
		IsActive:     true,
	}
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if ev, ok := args.Get(0).(*models.Event); ok {
		return ev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	args := m.Called(ctx)
	if evs, ok := args.Get(0).([]models.Event); ok {
		return evs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) UpsertEvent(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func TestUpsertEvent_CreatesAndUpdates(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	created, err := svc.UpsertEvent(ctx, validInput(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, 80, created.MaxAttendees)

	in := validInput(5)
	in.IsSuspended = true
	in.MaxAttendees = 120
	updated, err := svc.UpsertEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, updated.IsSuspended)
	assert.Equal(t, 120, updated.MaxAttendees)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpsertEvent_Validation(t *testing.T) {
	svc := setupCatalog(t)

	tests := []struct {
		name  string
		mut   func(*models.EventInput)
		field string
	}{
		{"missing title", func(in *models.EventInput) { in.Title = "" }, "title"},
		{"zero capacity", func(in *models.EventInput) { in.MaxAttendees = 0 }, "max_attendees"},
		{"negative price", func(in *models.EventInput) { in.TicketPrice = -1 }, "ticket_price"},
		{"missing date", func(in *models.EventInput) { in.EventDate = time.Time{} }, "event_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(9)
			tt.mut(&in)

			_, err := svc.UpsertEvent(context.Background(), in)
			require.ErrorIs(t, err, service.ErrValidation)

			var verr *service.Error
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestGetEvent_Errors(t *testing.T) {
	svc := setupCatalog(t)

	_, err := svc.GetEvent(context.Background(), 404)
	assert.ErrorIs(t, err, service.ErrEventNotFound)

	_, err = svc.GetEvent(context.Background(), 0)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestGetEvent_StorageFailureIsTransient(t *testing.T) {
	store := new(MockStore)
	store.On("GetEvent", mock.Anything, int64(3)).Return(nil, errors.New("connection reset"))
	svc := catalog.NewService(store, nil)

	_, err := svc.GetEvent(context.Background(), 3)
	assert.ErrorIs(t, err, service.ErrTransient)
	store.AssertExpectations(t)
}

func TestHandleEventMessage(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleEventMessage(ctx, models.EventMessage{
		Type:  catalog.MessageEventCreated,
		Event: validInput(11),
	}))
	event, err := svc.GetEvent(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "Bake Sale", event.Title)

	invalid := validInput(12)
	invalid.MaxAttendees = -3
	assert.NoError(t, svc.HandleEventMessage(ctx, models.EventMessage{Type: catalog.MessageEventUpdated, Event: invalid}),
		"invalid events are dropped, not retried")
	_, err = svc.GetEvent(ctx, 12)
	assert.ErrorIs(t, err, service.ErrEventNotFound)

	assert.NoError(t, svc.HandleEventMessage(ctx, models.EventMessage{Type: "event.archived", Event: validInput(13)}))
	_, err = svc.GetEvent(ctx, 13)
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestHandleEventMessage_StorageFailureIsReturned(t *testing.T) {
	store := new(MockStore)
	store.On("UpsertEvent", mock.Anything, mock.AnythingOfType("*models.Event")).Return(errors.New("database is locked"))
	svc := catalog.NewService(store, nil)

	err := svc.HandleEventMessage(context.Background(), models.EventMessage{
		Type:  catalog.MessageEventUpserted,
		Event: validInput(20),
	})
	assert.ErrorIs(t, err, service.ErrTransient)
	store.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
}
