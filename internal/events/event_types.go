package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventTicketEscalated EventType = "ticket_escalated"
	EventTicketResolved  EventType = "ticket_resolved"
	EventTicketFixed     EventType = "ticket_fixed"
	EventTicketClosed    EventType = "ticket_closed"
	EventNoteAdded       EventType = "note_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number   string                `json:"number"`
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Number     string `json:"number"`
	AssigneeID string `json:"assignee_id"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Number  string `json:"number"`
	Subject string `json:"subject"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Number     string  `json:"number"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// TicketFixedPayload marks an IT hand-back to customer service.
type TicketFixedPayload struct {
	Number    string `json:"number"`
	CreatorID string `json:"creator_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Number string `json:"number"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	Number     string  `json:"number"`
	NoteID     string  `json:"note_id"`
	AuthorID   string  `json:"author_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}
