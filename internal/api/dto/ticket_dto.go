package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	Source        string                `json:"source"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	AssignedTo    *string               `json:"assigned_to"`
}

// UpdateTicketRequest payload; omitted fields are untouched and an empty
// assigned_to clears the assignment.
type UpdateTicketRequest struct {
	Subject     *string                `json:"subject"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	AssignedTo  *string                `json:"assigned_to"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID            string                `json:"id"`
	Number        string                `json:"number"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	Source        string                `json:"source"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	AssignedTo    *string               `json:"assigned_to"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
	AssignedAt    *time.Time            `json:"assigned_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ActivityResponse is one audit trail entry.
type ActivityResponse struct {
	ID        string                `json:"id"`
	TicketID  string                `json:"ticket_id"`
	AgentID   *string               `json:"agent_id"`
	Action    domain.ActivityAction `json:"action"`
	Details   string                `json:"details"`
	CreatedAt time.Time             `json:"created_at"`
}
