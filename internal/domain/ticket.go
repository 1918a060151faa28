package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen TicketStatus = "OPEN"
	// TicketStatusTriage is deprecated in favor of OPEN; a migration rewrites
	// old rows and new writes never produce it. The constant stays so old
	// payloads still decode.
	TicketStatusTriage        TicketStatus = "TRIAGE"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusPendingReview TicketStatus = "PENDING_REVIEW"
	TicketStatusWithIT        TicketStatus = "WITH_IT"
	TicketStatusResolved      TicketStatus = "RESOLVED"
	TicketStatusClosed        TicketStatus = "CLOSED"
)

// IsCompleted reports whether the status counts toward completion metrics.
func (s TicketStatus) IsCompleted() bool {
	return s == TicketStatusClosed || s == TicketStatusResolved || s == TicketStatusPendingReview
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID            string
	Number        string
	Subject       string
	Description   string
	Priority      TicketPriority
	Status        TicketStatus
	Source        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	AssignedTo    *string
	CreatedBy     string
	CreatedAt     time.Time
	AssignedAt    *time.Time
	ClosedAt      *time.Time
	UpdatedAt     time.Time
}

// HandlingHours returns the elapsed assignment-to-closure time in hours.
// The boolean is false when the ticket lacks either timestamp or the
// duration is an outlier (non-positive or 30 days and beyond).
func (t Ticket) HandlingHours() (float64, bool) {
	if t.AssignedAt == nil || t.ClosedAt == nil {
		return 0, false
	}
	hours := t.ClosedAt.Sub(*t.AssignedAt).Hours()
	if hours <= 0 || hours >= 720 {
		return 0, false
	}
	return hours, true
}
