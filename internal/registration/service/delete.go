package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
)

// DeleteEvent removes an event only while it has no registrations. It takes
// the same event lock and row lock as admission, so a registration cannot
// commit against an event that is being deleted.
func (s *LedgerService) DeleteEvent(ctx context.Context, eventID int64) error {
	if eventID <= 0 {
		return validationError("invalid event id", map[string]string{"event_id": "must be a positive id"})
	}

	err := s.withRetry(ctx, "delete_event", func(ctx context.Context) error {
		err := s.withEventLock(ctx, eventID, uuid.NewString(), func() error {
			return s.Store.RunInTx(ctx, func(ctx context.Context, tx db.LedgerTx) error {
				return guardedDelete(ctx, tx, eventID)
			})
		})
		return translate(err)
	})
	if err != nil {
		s.Metrics.IncDeletion(KindOf(err).String())
		s.Log.LogRejection("DELETE_EVENT", eventID, err.Error())
		return err
	}

	s.Metrics.IncDeletion("deleted")
	s.Log.LogRegistration("DELETE_EVENT", eventID, "event deleted")

	s.publishEventDeleted(context.WithoutCancel(ctx), eventID)
	s.notify(models.RegistrationUpdate{
		Type:    models.UpdateEventDeleted,
		EventID: eventID,
		At:      s.now().UTC(),
	})
	return nil
}

func guardedDelete(ctx context.Context, tx db.LedgerTx, eventID int64) error {
	if _, err := tx.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return eventNotFound(eventID)
		}
		return err
	}

	n, err := tx.CountRegistrations(ctx, eventID)
	if err != nil {
		return err
	}
	if n > 0 {
		return hasDependents(n)
	}

	if err := tx.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return eventNotFound(eventID)
		}
		return err
	}
	return nil
}

// RemoveRegistration deletes one registration, freeing its tickets for later
// admissions. It skips the event lock: removal only lowers the allocation, and
// the transaction alone keeps the remaining count it reports consistent.
func (s *LedgerService) RemoveRegistration(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("invalid registration id", map[string]string{"id": "must be a positive id"})
	}

	var (
		removed   *models.Registration
		remaining int
	)
	err := s.withRetry(ctx, "remove_registration", func(ctx context.Context) error {
		err := s.Store.RunInTx(ctx, func(ctx context.Context, tx db.LedgerTx) error {
			reg, err := tx.GetRegistration(ctx, id)
			if errors.Is(err, database.ErrNotFound) {
				return notFound("registration", id)
			}
			if err != nil {
				return err
			}

			event, err := tx.GetEvent(ctx, reg.EventID)
			if err != nil {
				return err
			}
			if err := tx.DeleteRegistration(ctx, id); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return notFound("registration", id)
				}
				return err
			}

			allocated, err := tx.SumTicketCount(ctx, reg.EventID)
			if err != nil {
				return err
			}
			removed, remaining = reg, max(event.MaxAttendees-allocated, 0)
			return nil
		})
		return translate(err)
	})
	if err != nil {
		s.Log.LogRejection("REMOVE", 0, fmt.Sprintf("registration %d: %v", id, err))
		return err
	}

	s.Metrics.IncRemoval()
	s.Log.LogRegistration("REMOVE", removed.EventID,
		fmt.Sprintf("registration %d removed, %d tickets freed", removed.ID, removed.TicketCount))

	s.publishRemoved(context.WithoutCancel(ctx), *removed)
	s.notify(models.RegistrationUpdate{
		Type:           models.UpdateRegistrationRemoved,
		EventID:        removed.EventID,
		RegistrationID: removed.ID,
		TicketCount:    removed.TicketCount,
		Remaining:      remaining,
		At:             s.now().UTC(),
	})
	return nil
}
