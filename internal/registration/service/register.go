package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
)

// Register admits or rejects one registration attempt. The duplicate check,
// the capacity check and the insert run as one unit against the event, so
// concurrent calls behave as if they ran one after another.
func (s *LedgerService) Register(ctx context.Context, req RegistrationRequest) (*models.Registration, error) {
	start := time.Now()
	req = req.normalize()

	if err := ValidateStruct(req); err != nil {
		s.Metrics.ObserveAdmission(KindValidation.String(), start)
		return nil, err
	}

	var (
		reg       *models.Registration
		remaining int
	)
	err := s.withRetry(ctx, "register", func(ctx context.Context) error {
		r, left, err := s.admitOnce(ctx, req)
		if err != nil {
			return err
		}
		reg, remaining = r, left
		return nil
	})
	if err != nil {
		s.Metrics.ObserveAdmission(KindOf(err).String(), start)
		if IsTransient(err) {
			s.Log.Error("LEDGER", fmt.Sprintf("Registration for event %d failed: %v", req.EventID, err))
		} else {
			s.Log.LogRejection("REGISTER", req.EventID, err.Error())
		}
		return nil, err
	}

	s.Metrics.ObserveAdmission("admitted", start)
	s.Log.LogRegistration("REGISTER", reg.EventID,
		fmt.Sprintf("registration %d admitted, %d tickets, %d remaining", reg.ID, reg.TicketCount, remaining))

	after := context.WithoutCancel(ctx)
	s.publishCreated(after, *reg)
	s.notify(models.RegistrationUpdate{
		Type:           models.UpdateRegistrationCreated,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		TicketCount:    reg.TicketCount,
		Remaining:      remaining,
		At:             reg.RegistrationDate,
	})

	return reg, nil
}

// admitOnce is a single attempt at the admission unit.
func (s *LedgerService) admitOnce(ctx context.Context, req RegistrationRequest) (*models.Registration, int, error) {
	var (
		admitted  *models.Registration
		remaining int
	)

	err := s.withEventLock(ctx, req.EventID, uuid.NewString(), func() error {
		return s.Store.RunInTx(ctx, func(ctx context.Context, tx db.LedgerTx) error {
			reg, left, err := s.decide(ctx, tx, req)
			if err != nil {
				return err
			}
			admitted, remaining = reg, left
			return nil
		})
	})
	if err != nil {
		return nil, 0, translate(err)
	}
	return admitted, remaining, nil
}

// decide evaluates the admission rules in order and inserts on success.
func (s *LedgerService) decide(ctx context.Context, tx db.LedgerTx, req RegistrationRequest) (*models.Registration, int, error) {
	event, err := tx.GetEvent(ctx, req.EventID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, 0, eventNotFound(req.EventID)
	}
	if err != nil {
		return nil, 0, err
	}

	if !event.IsActive || event.IsSuspended {
		return nil, 0, eventUnavailable(event.ID, "is not accepting registrations")
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	if !event.EventDate.After(now) {
		return nil, 0, eventUnavailable(event.ID, "has already taken place")
	}

	existing, err := tx.FindRegistrationByEmail(ctx, event.ID, req.Email)
	switch {
	case err == nil:
		return nil, 0, duplicateRegistration(existing.ID)
	case !errors.Is(err, database.ErrNotFound):
		return nil, 0, err
	}

	allocated, err := tx.SumTicketCount(ctx, event.ID)
	if err != nil {
		return nil, 0, err
	}
	if allocated+req.TicketCount > event.MaxAttendees {
		return nil, 0, insufficientCapacity(event.MaxAttendees - allocated)
	}

	reg := req.toModel()
	reg.RegistrationDate = now
	if err := tx.InsertRegistration(ctx, reg); err != nil {
		return nil, 0, err
	}

	return reg, event.MaxAttendees - allocated - req.TicketCount, nil
}
