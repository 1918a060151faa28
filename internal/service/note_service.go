package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// NoteService manages private per-agent ticket notes.
type NoteService struct {
	notes      repository.NoteRepository
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
}

// NoteDependencies bundles requirements for the note service.
type NoteDependencies struct {
	NoteRepo     repository.NoteRepository
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
}

// NewNoteService constructs the service.
func NewNoteService(deps NoteDependencies) *NoteService {
	return &NoteService{
		notes:      deps.NoteRepo,
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AddNote attaches a private note to a ticket, records a NOTE_ADDED activity
// and notifies the ticket's assignee.
func (s *NoteService) AddNote(ctx context.Context, authorID, ticketID string, content domain.NoteContent) (*domain.Note, error) {
	if content.Title == "" && content.Content == "" && len(content.ChecklistItems) == 0 {
		return nil, apperrors.NewValidationError("note content required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	note := &domain.Note{
		TicketID: ticket.ID,
		AgentID:  authorID,
		Content:  content,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	// Activity insertion is best effort here; the note is already committed.
	_ = s.activities.Create(ctx, &domain.Activity{
		TicketID: ticket.ID,
		AgentID:  &authorID,
		Action:   domain.ActivityNoteAdded,
		Details:  fmt.Sprintf("note added to ticket #%s", ticket.Number),
	})

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventNoteAdded,
			TicketID:  ticket.ID,
			ActorID:   authorID,
			Timestamp: time.Now(),
			Payload: events.NoteAddedPayload{
				Number:     ticket.Number,
				NoteID:     note.ID,
				AuthorID:   authorID,
				AssigneeID: ticket.AssignedTo,
			},
		})
	}
	return note, nil
}

// UpdateNote replaces the note content (including checklist toggles) for the
// authoring agent.
func (s *NoteService) UpdateNote(ctx context.Context, authorID, noteID string, content domain.NoteContent) (*domain.Note, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("note", map[string]any{"note_id": noteID})
		}
		return nil, apperrors.MapError(err)
	}
	if note.AgentID != authorID {
		return nil, apperrors.NewForbidden("notes are private to their author")
	}

	note.Content = content
	if err := s.notes.Update(ctx, note); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("note", map[string]any{"note_id": noteID})
		}
		return nil, apperrors.MapError(err)
	}
	return note, nil
}

// ListNotes returns the requesting agent's notes on a ticket.
func (s *NoteService) ListNotes(ctx context.Context, agentID, ticketID string) ([]domain.Note, error) {
	notes, err := s.notes.ListByTicketAndAgent(ctx, ticketID, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}
