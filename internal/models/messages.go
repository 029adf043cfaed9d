package models

import "time"

const (
	UpdateRegistrationCreated = "registration.created"
	UpdateRegistrationRemoved = "registration.removed"
	UpdateEventDeleted        = "event.deleted"
)

// RegistrationMessage is published to Kafka after a ledger commit.
type RegistrationMessage struct {
	Type         string       `json:"type"`
	Registration Registration `json:"registration"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// EventDeletedMessage is published once the deletion guard removed an event.
type EventDeletedMessage struct {
	Type       string    `json:"type"`
	EventID    int64     `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RegistrationUpdate is pushed to live subscribers of an event.
type RegistrationUpdate struct {
	Type           string    `json:"type"`
	EventID        int64     `json:"event_id"`
	RegistrationID int64     `json:"registration_id"`
	TicketCount    int       `json:"ticket_count"`
	Remaining      int       `json:"remaining"`
	At             time.Time `json:"at"`
}
