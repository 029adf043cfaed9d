package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID                  int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID             int64     `bun:"event_id,notnull" json:"event_id"`
	FullName            string    `bun:"full_name,notnull" json:"full_name"`
	Email               string    `bun:"email,notnull" json:"email"`
	Phone               string    `bun:"phone,nullzero" json:"phone,omitempty"`
	TicketCount         int       `bun:"ticket_count,notnull" json:"ticket_count"`
	SpecialRequirements string    `bun:"special_requirements,nullzero" json:"special_requirements,omitempty"`
	RegistrationDate    time.Time `bun:"registration_date,notnull" json:"registration_date"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"-"`
}

// RegistrationPage is one page of the global registration listing.
type RegistrationPage struct {
	Items []Registration `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// RegistrationStats aggregates the whole ledger.
type RegistrationStats struct {
	TotalRegistrations      int     `bun:"total_registrations" json:"total_registrations"`
	TotalTickets            int     `bun:"total_tickets" json:"total_tickets"`
	AvgTickets              float64 `bun:"-" json:"avg_tickets"`
	UniqueAttendees         int     `bun:"unique_attendees" json:"unique_attendees"`
	EventsWithRegistrations int     `bun:"events_with_registrations" json:"events_with_registrations"`
}

// DailyRegistrations is one row of an event summary breakdown.
type DailyRegistrations struct {
	Date          string `json:"date"`
	Registrations int    `json:"registrations"`
	Tickets       int    `json:"tickets"`
}

// EventSummary is the live allocation picture of a single event.
type EventSummary struct {
	EventID          int64                `json:"event_id"`
	Title            string               `json:"title"`
	MaxAttendees     int                  `json:"max_attendees"`
	TicketsAllocated int                  `json:"tickets_allocated"`
	Remaining        int                  `json:"remaining"`
	Registrations    int                  `json:"registrations"`
	Daily            []DailyRegistrations `json:"daily"`
}
