package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// NoteRequest payload for creating or replacing a note.
type NoteRequest struct {
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	ChecklistItems []domain.ChecklistItem `json:"checklist_items"`
}

// NoteResponse is one private note.
type NoteResponse struct {
	ID             string                 `json:"id"`
	TicketID       string                 `json:"ticket_id"`
	AgentID        string                 `json:"agent_id"`
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	ChecklistItems []domain.ChecklistItem `json:"checklist_items"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
