package service

import (
	"context"
	"fmt"
	"time"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
	"ms-registration/internal/registration/metrics"
)

// LedgerStore is the storage the ledger writes through. Every write happens
// inside RunInTx; the list methods only read committed rows.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx db.LedgerTx) error) error
	ListByEvent(ctx context.Context, eventID int64) ([]models.Registration, error)
	ListRegistrations(ctx context.Context, eventID *int64, limit, offset int) ([]models.Registration, int, error)
	GetRegistration(ctx context.Context, id int64) (*models.Registration, error)
}

// EventLock serializes ledger units for one event across replicas.
type EventLock interface {
	Acquire(ctx context.Context, eventID int64, owner string) (bool, error)
	Release(ctx context.Context, eventID int64, owner string) error
}

type Publisher interface {
	PublishRegistrationCreated(ctx context.Context, reg models.Registration) error
	PublishRegistrationRemoved(ctx context.Context, reg models.Registration) error
	PublishEventDeleted(ctx context.Context, eventID int64) error
}

// Notifier receives committed changes for live subscribers.
type Notifier interface {
	Notify(update models.RegistrationUpdate)
}

// LedgerService owns every write to registration state. Lock, Events,
// Notifier and Metrics are optional.
type LedgerService struct {
	Store    LedgerStore
	Lock     EventLock
	Events   Publisher
	Notifier Notifier
	Metrics  *metrics.Metrics
	Log      *logger.Logger

	retry config.LedgerConfig
	now   func() time.Time
}

func NewLedgerService(store LedgerStore, cfg config.LedgerConfig, log *logger.Logger) *LedgerService {
	return &LedgerService{
		Store: store,
		Log:   log,
		retry: cfg,
		now:   time.Now,
	}
}

// SetClock replaces the clock used for registration dates and the
// event-date check.
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// withEventLock runs fn while holding the optional per-event lock. A lock
// that cannot be taken in time is a transient failure.
func (s *LedgerService) withEventLock(ctx context.Context, eventID int64, owner string, fn func() error) error {
	if s.Lock == nil {
		return fn()
	}

	ok, err := s.Lock.Acquire(ctx, eventID, owner)
	if err != nil {
		return transient("event lock unavailable", err)
	}
	if !ok {
		return transient(fmt.Sprintf("event %d is busy", eventID), nil)
	}
	defer func() {
		if err := s.Lock.Release(context.WithoutCancel(ctx), eventID, owner); err != nil {
			s.Log.Warn("LEDGER", fmt.Sprintf("Failed to release lock for event %d: %v", eventID, err))
		}
	}()

	return fn()
}

func (s *LedgerService) publishCreated(ctx context.Context, reg models.Registration) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishRegistrationCreated(ctx, reg); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Publish registration.created failed for registration %d: %v", reg.ID, err))
	}
}

func (s *LedgerService) publishRemoved(ctx context.Context, reg models.Registration) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishRegistrationRemoved(ctx, reg); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Publish registration.removed failed for registration %d: %v", reg.ID, err))
	}
}

func (s *LedgerService) publishEventDeleted(ctx context.Context, eventID int64) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEventDeleted(ctx, eventID); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Publish event.deleted failed for event %d: %v", eventID, err))
	}
}

func (s *LedgerService) notify(update models.RegistrationUpdate) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(update)
}
