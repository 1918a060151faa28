package domain

import "time"

// ChecklistItem is a single entry in a note's checklist.
type ChecklistItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// NoteContent is the JSON payload stored for a note.
type NoteContent struct {
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
}

// Note is a private per-agent note attached to a ticket. Reads are always
// filtered by the authoring agent.
type Note struct {
	ID        string
	TicketID  string
	AgentID   string
	Content   NoteContent
	CreatedAt time.Time
	UpdatedAt time.Time
}
