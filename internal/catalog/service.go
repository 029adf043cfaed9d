package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-registration/internal/database"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/service"
)

// Event message types accepted from the event-management flow.
const (
	MessageEventCreated  = "event.created"
	MessageEventUpdated  = "event.updated"
	MessageEventUpserted = "event.upserted"
)

type Store interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpsertEvent(ctx context.Context, event *models.Event) error
}

// Service holds the event catalog. Errors use the ledger's taxonomy so the
// HTTP layer maps both the same way.
type Service struct {
	Store  Store
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log, now: time.Now}
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	if id <= 0 {
		return nil, &service.Error{
			Kind:    service.KindValidation,
			Message: "invalid event id",
			Fields:  map[string]string{"event_id": "must be a positive id"},
		}
	}
	event, err := s.Store.GetEvent(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &service.Error{Kind: service.KindEventNotFound, Message: fmt.Sprintf("event %d does not exist", id)}
	}
	if err != nil {
		return nil, storageError(err)
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.Store.ListEvents(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return events, nil
}

// UpsertEvent validates in and writes it. It never removes anything.
func (s *Service) UpsertEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	if err := service.ValidateStruct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	event := &models.Event{
		ID:            in.ID,
		Title:         in.Title,
		Description:   in.Description,
		EventDate:     in.EventDate.UTC().Truncate(time.Microsecond),
		Location:      in.Location,
		TicketPrice:   in.TicketPrice,
		GoalAmount:    in.GoalAmount,
		CurrentAmount: in.CurrentAmount,
		MaxAttendees:  in.MaxAttendees,
		IsActive:      in.IsActive,
		IsSuspended:   in.IsSuspended,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.UpsertEvent(ctx, event); err != nil {
		return nil, storageError(err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("Event %d upserted (max_attendees=%d, active=%t, suspended=%t)",
		event.ID, event.MaxAttendees, event.IsActive, event.IsSuspended))

	// Reload so callers see the stored created_at.
	return s.GetEvent(ctx, event.ID)
}

// HandleEventMessage applies one catalog message from Kafka. Messages that
// can never succeed are logged and dropped; storage failures are returned
// so the consumer tries again.
func (s *Service) HandleEventMessage(ctx context.Context, msg models.EventMessage) error {
	switch msg.Type {
	case MessageEventCreated, MessageEventUpdated, MessageEventUpserted, "":
	default:
		s.Logger.Debug("CATALOG", "Ignoring event message of type "+msg.Type)
		return nil
	}

	if msg.Event.ID <= 0 {
		s.Logger.Warn("CATALOG", "Dropping event message without an id")
		return nil
	}

	_, err := s.UpsertEvent(ctx, msg.Event)
	if service.KindOf(err) == service.KindValidation {
		s.Logger.Warn("CATALOG", fmt.Sprintf("Dropping invalid event %d: %v", msg.Event.ID, err))
		return nil
	}
	return err
}

func storageError(err error) error {
	return &service.Error{Kind: service.KindTransient, Message: "catalog storage failure", Err: err}
}
