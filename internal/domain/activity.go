package domain

import "time"

// ActivityAction identifies what a ticket mutation did.
type ActivityAction string

const (
	ActivityTicketCreated   ActivityAction = "TICKET_CREATED"
	ActivityTicketUpdated   ActivityAction = "TICKET_UPDATED"
	ActivityTicketAssigned  ActivityAction = "TICKET_ASSIGNED"
	ActivityTicketEscalated ActivityAction = "TICKET_ESCALATED"
	ActivityTicketResolved  ActivityAction = "TICKET_RESOLVED"
	ActivityTicketClosed    ActivityAction = "TICKET_CLOSED"
	ActivityNoteAdded       ActivityAction = "NOTE_ADDED"
)

// Activity is an append-only audit trail entry, one row per ticket mutation.
type Activity struct {
	ID        string
	TicketID  string
	AgentID   *string
	Action    ActivityAction
	Details   string
	CreatedAt time.Time
}
