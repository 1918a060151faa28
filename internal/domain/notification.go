package domain

import "time"

// NotificationType identifies the triggering event for a notification row.
type NotificationType string

const (
	NotificationNewTicket NotificationType = "NEW_TICKET"
	NotificationAssigned  NotificationType = "TICKET_ASSIGNED"
	NotificationEscalated NotificationType = "TICKET_ESCALATED"
	NotificationResolved  NotificationType = "TICKET_RESOLVED"
	NotificationFixed     NotificationType = "TICKET_FIXED"
	NotificationNoteAdded NotificationType = "NOTE_ADDED"
	NotificationOverdue   NotificationType = "TICKET_OVERDUE"
)

// Notification is one fan-out row per (recipient, event).
type Notification struct {
	ID          string
	AgentID     string
	Type        NotificationType
	Title       string
	Description string
	TicketID    *string
	IsRead      bool
	CreatedAt   time.Time
}
