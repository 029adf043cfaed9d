package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"ms-registration/internal/database"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// Store is the read side the analytics service aggregates over.
type Store interface {
	GetStats(ctx context.Context) (*models.RegistrationStats, error)
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	GetRegistrationDays(ctx context.Context, eventID int64) ([]RegistrationDay, error)
}

// Service handles analytics operations. Every figure is computed from
// committed registrations; only Stats may be served from the cache.
type Service struct {
	db     Store
	cache  *StatsCache
	Logger *logger.Logger
}

// NewService creates a new analytics service. cache may be nil.
func NewService(db Store, cache *StatsCache, log *logger.Logger) *Service {
	return &Service{db: db, cache: cache, Logger: log}
}

// Stats returns ledger-wide totals, read through the cache when one is set
func (s *Service) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.Logger.Warn("ANALYTICS", "Stats cache read failed: "+err.Error())
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.db.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.TotalRegistrations > 0 {
		stats.AvgTickets = roundOne(float64(stats.TotalTickets) / float64(stats.TotalRegistrations))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.Logger.Warn("ANALYTICS", "Stats cache write failed: "+err.Error())
		}
	}
	return stats, nil
}

// EventSummary reports the live allocation of one event with a per-day
// breakdown in UTC.
func (s *Service) EventSummary(ctx context.Context, eventID int64) (*models.EventSummary, error) {
	event, err := s.db.GetEvent(ctx, eventID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
	}
	if err != nil {
		return nil, err
	}

	days, err := s.db.GetRegistrationDays(ctx, eventID)
	if err != nil {
		return nil, err
	}

	summary := &models.EventSummary{
		EventID:      event.ID,
		Title:        event.Title,
		MaxAttendees: event.MaxAttendees,
		Daily:        []models.DailyRegistrations{},
	}
	for _, d := range days {
		summary.Registrations++
		summary.TicketsAllocated += d.TicketCount

		date := d.RegistrationDate.UTC().Format("2006-01-02")
		n := len(summary.Daily)
		if n == 0 || summary.Daily[n-1].Date != date {
			summary.Daily = append(summary.Daily, models.DailyRegistrations{Date: date})
			n++
		}
		summary.Daily[n-1].Registrations++
		summary.Daily[n-1].Tickets += d.TicketCount
	}

	summary.Remaining = event.MaxAttendees - summary.TicketsAllocated
	if summary.Remaining < 0 {
		summary.Remaining = 0
	}
	return summary, nil
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}
