package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
	regdb "ms-registration/internal/registration/db"
	"ms-registration/internal/registration/service"
)

// ---------------- fault injection ----------------

// faultyStore delegates to a real store but can fail a unit before it starts
// or right after the insert, before commit.
type faultyStore struct {
	*regdb.DB
	failBefore   int32 // units that fail before running
	failAfterIns error // returned after every successful insert
	units        int32
}

func (f *faultyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx regdb.LedgerTx) error) error {
	atomic.AddInt32(&f.units, 1)
	if atomic.AddInt32(&f.failBefore, -1) >= 0 {
		return fmt.Errorf("%w: could not serialize access", database.ErrTransient)
	}
	return f.DB.RunInTx(ctx, func(ctx context.Context, tx regdb.LedgerTx) error {
		return fn(ctx, &faultyTx{LedgerTx: tx, failAfterInsert: f.failAfterIns})
	})
}

type faultyTx struct {
	regdb.LedgerTx
	failAfterInsert error
}

func (t *faultyTx) InsertRegistration(ctx context.Context, reg *models.Registration) error {
	if err := t.LedgerTx.InsertRegistration(ctx, reg); err != nil {
		return err
	}
	return t.failAfterInsert
}

func setupFaultyLedger(t *testing.T) (*service.LedgerService, *faultyStore) {
	t.Helper()
	_, store := setupLedger(t)
	faulty := &faultyStore{DB: store}
	return service.NewLedgerService(faulty, testLedgerConfig, nil), faulty
}

func TestRegister_AbortAfterInsertLeavesNoPartialState(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 10)
	ctx := context.Background()

	_, err := ledger.Register(ctx, request(event.ID, "before@example.org", 2))
	require.NoError(t, err)

	store.failAfterIns = errors.New("disk I/O error")
	_, err = ledger.Register(ctx, request(event.ID, "doomed@example.org", 3))
	assert.True(t, service.IsTransient(err))

	sum, count := allocated(t, store.DB, event.ID)
	assert.Equal(t, 2, sum)
	assert.Equal(t, 1, count)
}

func TestRegister_RetriesTransientFailures(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 10)
	store.failBefore = 2

	reg, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	require.NoError(t, err)
	assert.NotZero(t, reg.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&store.units))
}

func TestRegister_GivesUpAfterMaxAttempts(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 10)
	store.failBefore = 100

	_, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	assert.ErrorIs(t, err, service.ErrTransient)
	assert.Equal(t, int32(testLedgerConfig.MaxAttempts), atomic.LoadInt32(&store.units))

	_, count := allocated(t, store.DB, event.ID)
	assert.Zero(t, count)
}

func TestRegister_CancelledContextIsTransient(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.Register(ctx, request(event.ID, "a@example.org", 1))
	assert.True(t, service.IsTransient(err))

	_, count := allocated(t, store.DB, event.ID)
	assert.Zero(t, count)
}

func TestRegister_RejectionsAreNotRetried(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 1, suspended)

	_, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	assert.ErrorIs(t, err, service.ErrEventUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.units))
}

// ---------------- mocks ----------------

type MockStore struct {
	mock.Mock
}

func (m *MockStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx regdb.LedgerTx) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockStore) ListByEvent(ctx context.Context, eventID int64) ([]models.Registration, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockStore) ListRegistrations(ctx context.Context, eventID *int64, limit, offset int) ([]models.Registration, int, error) {
	args := m.Called(ctx, eventID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Registration), args.Int(1), args.Error(2)
}

func (m *MockStore) GetRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRegistrationCreated(ctx context.Context, reg models.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

func (m *MockPublisher) PublishRegistrationRemoved(ctx context.Context, reg models.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

func (m *MockPublisher) PublishEventDeleted(ctx context.Context, eventID int64) error {
	return m.Called(ctx, eventID).Error(0)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Acquire(ctx context.Context, eventID int64, owner string) (bool, error) {
	args := m.Called(ctx, eventID, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLock) Release(ctx context.Context, eventID int64, owner string) error {
	return m.Called(ctx, eventID, owner).Error(0)
}

type recordingNotifier struct {
	updates []models.RegistrationUpdate
}

func (r *recordingNotifier) Notify(u models.RegistrationUpdate) {
	r.updates = append(r.updates, u)
}

func TestRegister_ValidationNeverTouchesStore(t *testing.T) {
	store := new(MockStore)
	ledger := service.NewLedgerService(store, testLedgerConfig, nil)

	bad := []service.RegistrationRequest{
		{EventID: 1, FullName: "A", Email: "nope", TicketCount: 1},
		{EventID: 1, FullName: "A", Email: "a@example.org", TicketCount: 0},
		{EventID: 1, FullName: "A", Email: "a@example.org", TicketCount: -3},
		{EventID: 1, FullName: " ", Email: "a@example.org", TicketCount: 1},
		{EventID: 0, FullName: "A", Email: "a@example.org", TicketCount: 1},
	}
	for _, req := range bad {
		_, err := ledger.Register(context.Background(), req)
		assert.ErrorIs(t, err, service.ErrValidation)
	}
	store.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything)
}

func TestListRegistrations_ValidatesBeforeQuerying(t *testing.T) {
	store := new(MockStore)
	ledger := service.NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	for _, q := range []service.ListQuery{
		{Page: 0, Limit: 20},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 101},
		{Page: -2, Limit: 500},
	} {
		_, err := ledger.ListRegistrations(ctx, q)
		assert.ErrorIs(t, err, service.ErrValidation)
	}
	store.AssertNotCalled(t, "ListRegistrations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	eventID := int64(7)
	rows := []models.Registration{{ID: 3, EventID: 7}}
	store.On("ListRegistrations", ctx, &eventID, 10, 20).Return(rows, 21, nil).Once()

	page, err := ledger.ListRegistrations(ctx, service.ListQuery{EventID: &eventID, Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, rows, page.Items)
	store.AssertExpectations(t)
}

func TestGetRegistration_NotFound(t *testing.T) {
	store := new(MockStore)
	ledger := service.NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	store.On("GetRegistration", ctx, int64(9)).Return(nil, fmt.Errorf("%w: no rows", database.ErrNotFound))

	_, err := ledger.GetRegistration(ctx, 9)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListByEvent_StorageFailureIsTransient(t *testing.T) {
	store := new(MockStore)
	ledger := service.NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	store.On("ListByEvent", ctx, int64(5)).Return(nil, errors.New("connection reset"))

	_, err := ledger.ListByEvent(ctx, 5)
	assert.ErrorIs(t, err, service.ErrTransient)
}

func TestRegister_PublishesAndNotifiesAfterCommit(t *testing.T) {
	ledger, store := setupLedger(t)
	event := seedEvent(t, store.Bun, 4)

	pub := new(MockPublisher)
	pub.On("PublishRegistrationCreated", mock.Anything, mock.MatchedBy(func(r models.Registration) bool {
		return r.EventID == event.ID && r.Email == "a@example.org"
	})).Return(errors.New("broker down")).Once()
	notifier := &recordingNotifier{}
	ledger.Events = pub
	ledger.Notifier = notifier

	reg, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 3))
	require.NoError(t, err, "a failed publish must not undo the admission")

	pub.AssertExpectations(t)
	require.Len(t, notifier.updates, 1)
	assert.Equal(t, models.UpdateRegistrationCreated, notifier.updates[0].Type)
	assert.Equal(t, reg.ID, notifier.updates[0].RegistrationID)
	assert.Equal(t, 1, notifier.updates[0].Remaining)
}

func TestRegister_RejectionPublishesNothing(t *testing.T) {
	ledger, store := setupLedger(t)
	event := seedEvent(t, store.Bun, 1, suspended)

	pub := new(MockPublisher)
	ledger.Events = pub

	_, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	require.Error(t, err)
	pub.AssertNotCalled(t, "PublishRegistrationCreated", mock.Anything, mock.Anything)
}

func TestDeleteEvent_PublishesEventDeleted(t *testing.T) {
	ledger, store := setupLedger(t)
	event := seedEvent(t, store.Bun, 4)

	pub := new(MockPublisher)
	pub.On("PublishEventDeleted", mock.Anything, event.ID).Return(nil).Once()
	ledger.Events = pub

	require.NoError(t, ledger.DeleteEvent(context.Background(), event.ID))
	pub.AssertExpectations(t)
}

func TestRegister_BusyEventLockIsTransient(t *testing.T) {
	ledger, store := setupFaultyLedger(t)
	event := seedEvent(t, store.Bun, 4)

	lock := new(MockLock)
	lock.On("Acquire", mock.Anything, event.ID, mock.AnythingOfType("string")).Return(false, nil)
	ledger.Lock = lock

	_, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	assert.ErrorIs(t, err, service.ErrTransient)
	assert.Zero(t, atomic.LoadInt32(&store.units))
	lock.AssertNumberOfCalls(t, "Acquire", testLedgerConfig.MaxAttempts)
	lock.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_ReleasesEventLockWithSameOwner(t *testing.T) {
	ledger, store := setupLedger(t)
	event := seedEvent(t, store.Bun, 4)

	var owner string
	lock := new(MockLock)
	lock.On("Acquire", mock.Anything, event.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { owner = args.String(2) }).
		Return(true, nil).Once()
	lock.On("Release", mock.Anything, event.ID, mock.MatchedBy(func(o string) bool { return o == owner })).
		Return(nil).Once()
	ledger.Lock = lock

	_, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	require.NoError(t, err)
	lock.AssertExpectations(t)
}

func TestRegister_UsesInjectedClock(t *testing.T) {
	ledger, store := setupLedger(t)
	event := seedEvent(t, store.Bun, 4)

	fixed := event.EventDate.Add(-48 * time.Hour).Truncate(time.Second)
	ledger.SetClock(func() time.Time { return fixed })

	reg, err := ledger.Register(context.Background(), request(event.ID, "a@example.org", 1))
	require.NoError(t, err)
	assert.True(t, fixed.Equal(reg.RegistrationDate))

	ledger.SetClock(func() time.Time { return event.EventDate })
	_, err = ledger.Register(context.Background(), request(event.ID, "b@example.org", 1))
	assert.ErrorIs(t, err, service.ErrEventUnavailable)
}
