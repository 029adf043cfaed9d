package service

import (
	"context"
	"errors"

	"ms-registration/internal/database"
	"ms-registration/internal/models"
)

// ListByEvent returns every registration of an event, newest first. An
// unknown event yields an empty list.
func (s *LedgerService) ListByEvent(ctx context.Context, eventID int64) ([]models.Registration, error) {
	if eventID <= 0 {
		return nil, validationError("invalid event id", map[string]string{"event_id": "must be a positive id"})
	}
	regs, err := s.Store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, translate(err)
	}
	return regs, nil
}

// ListRegistrations returns one page of registrations. Parameters are
// checked before the store is queried.
func (s *LedgerService) ListRegistrations(ctx context.Context, q ListQuery) (*models.RegistrationPage, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	regs, total, err := s.Store.ListRegistrations(ctx, q.EventID, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return nil, translate(err)
	}
	return &models.RegistrationPage{
		Items: regs,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

func (s *LedgerService) GetRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	if id <= 0 {
		return nil, validationError("invalid registration id", map[string]string{"id": "must be a positive id"})
	}
	reg, err := s.Store.GetRegistration(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("registration", id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return reg, nil
}
