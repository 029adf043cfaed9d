package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is a catalog entry people can register for. The registration ledger
// only reads it, except that the deletion guard decides whether it may go.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Title         string    `bun:"title,notnull" json:"title"`
	Description   string    `bun:"description" json:"description"`
	EventDate     time.Time `bun:"event_date,notnull" json:"event_date"`
	Location      string    `bun:"location" json:"location"`
	TicketPrice   float64   `bun:"ticket_price,notnull" json:"ticket_price"`
	GoalAmount    float64   `bun:"goal_amount,notnull" json:"goal_amount"`
	CurrentAmount float64   `bun:"current_amount,notnull" json:"current_amount"`
	MaxAttendees  int       `bun:"max_attendees,notnull" json:"max_attendees"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`
	IsSuspended   bool      `bun:"is_suspended,notnull" json:"is_suspended"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Open reports whether the event currently accepts registrations.
func (e *Event) Open(now time.Time) bool {
	return e.IsActive && !e.IsSuspended && e.EventDate.After(now)
}

// EventInput is the payload the event-management flow sends to create or
// update a catalog entry. ID zero means "assign a new id".
type EventInput struct {
	ID            int64     `json:"id" validate:"gte=0"`
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=5000"`
	EventDate     time.Time `json:"event_date" validate:"required"`
	Location      string    `json:"location" validate:"max=300"`
	TicketPrice   float64   `json:"ticket_price" validate:"gte=0"`
	GoalAmount    float64   `json:"goal_amount" validate:"gte=0"`
	CurrentAmount float64   `json:"current_amount" validate:"gte=0"`
	MaxAttendees  int       `json:"max_attendees" validate:"gt=0"`
	IsActive      bool      `json:"is_active"`
	IsSuspended   bool      `json:"is_suspended"`
}

// EventMessage is the Kafka envelope the event-management flow publishes
// whenever an event is created or changed.
type EventMessage struct {
	Type   string     `json:"type"`
	Event  EventInput `json:"event"`
	SentAt time.Time  `json:"sent_at"`
}
