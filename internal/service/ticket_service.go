package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle: creation, partial updates
// with derived audit entries, and deletion.
type TicketService struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
	policy     config.SupportConfig
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	Dispatcher   events.Dispatcher
	Policy       config.SupportConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject       string
	Description   string
	Priority      domain.TicketPriority
	Source        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	AssignedTo    *string
}

// TicketUpdateInput describes a partial update. Nil fields are untouched;
// an AssignedTo pointing at the empty string clears the assignment.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssignedTo  *string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	AssignedTo  *string
	CreatedBy   *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CreateTicket creates a ticket with the next sequential number and records
// a single TICKET_CREATED activity in the same transaction.
func (s *TicketService) CreateTicket(ctx context.Context, actorID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	customer := strings.TrimSpace(input.CustomerName)
	if subject == "" || customer == "" {
		return nil, apperrors.NewValidationError("subject and customer_name required", nil)
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	number, err := s.tickets.NextNumber(ctx, s.policy.TicketNumberBase)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		Number:        number,
		Subject:       subject,
		Description:   strings.TrimSpace(input.Description),
		Priority:      input.Priority,
		Status:        domain.TicketStatusOpen,
		Source:        input.Source,
		CustomerName:  customer,
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		AssignedTo:    input.AssignedTo,
		CreatedBy:     actorID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Source == "" {
		ticket.Source = s.policy.DefaultSource
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo != "" {
		now := time.Now()
		ticket.AssignedAt = &now
	} else {
		ticket.AssignedTo = nil
	}

	activity := &domain.Activity{
		AgentID: &actorID,
		Action:  domain.ActivityTicketCreated,
		Details: fmt.Sprintf("ticket #%s created", ticket.Number),
	}
	if err := s.tickets.Create(ctx, ticket, activity); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			Number:   ticket.Number,
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// UpdateTicket applies a partial update, stamps assignment/closure
// timestamps, and records exactly one derived activity row. The ticket row
// and its activity commit together; lifecycle events publish afterwards and
// never fail the update.
func (s *TicketService) UpdateTicket(ctx context.Context, actorID, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	prev := *ticket

	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, apperrors.NewValidationError("subject cannot be empty", nil)
		}
		ticket.Subject = subject
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !validPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee := *input.AssignedTo
			ticket.AssignedTo = &assignee
		}
	}

	now := time.Now()
	if ticket.Status == domain.TicketStatusClosed {
		if ticket.ClosedAt == nil {
			ticket.ClosedAt = &now
		}
	} else {
		ticket.ClosedAt = nil
	}
	if ticket.AssignedTo != nil && prev.AssignedAt == nil {
		ticket.AssignedAt = &now
	}

	action, details := deriveActivity(&prev, ticket)
	activity := &domain.Activity{
		AgentID: &actorID,
		Action:  action,
		Details: details,
	}
	if err := s.tickets.Update(ctx, ticket, activity); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, event := range s.lifecycleEvents(&prev, ticket, actorID) {
		s.publishEvent(ctx, event)
	}
	return ticket, nil
}

// GetTicket fetches a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		AssignedTo:  filter.AssignedTo,
		CreatedBy:   filter.CreatedBy,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// DeleteTicket removes the row. Related notes and activities are left in
// place; orphaning them is accepted behavior.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string) error {
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListActivities returns the audit trail for a ticket.
func (s *TicketService) ListActivities(ctx context.Context, ticketID string, limit, offset int) ([]domain.Activity, error) {
	result, err := s.activities.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if result == nil {
		result = []domain.Activity{}
	}
	return result, nil
}

// deriveActivity picks the single audit action for an update by comparing
// prior and new state. Assignment detection takes precedence over status
// detection when both changed in the same call.
func deriveActivity(prev, next *domain.Ticket) (domain.ActivityAction, string) {
	if assigneeChanged(prev.AssignedTo, next.AssignedTo) {
		if next.AssignedTo == nil {
			return domain.ActivityTicketAssigned, fmt.Sprintf("ticket #%s unassigned", next.Number)
		}
		return domain.ActivityTicketAssigned, fmt.Sprintf("ticket #%s assigned to %s", next.Number, *next.AssignedTo)
	}
	if prev.Status != next.Status {
		switch next.Status {
		case domain.TicketStatusClosed:
			return domain.ActivityTicketClosed, fmt.Sprintf("ticket #%s closed", next.Number)
		case domain.TicketStatusResolved:
			return domain.ActivityTicketResolved, fmt.Sprintf("ticket #%s resolved", next.Number)
		case domain.TicketStatusWithIT:
			return domain.ActivityTicketEscalated, fmt.Sprintf("ticket #%s escalated to IT", next.Number)
		default:
			return domain.ActivityTicketUpdated, fmt.Sprintf("status %s -> %s", prev.Status, next.Status)
		}
	}
	return domain.ActivityTicketUpdated, fmt.Sprintf("ticket #%s updated", next.Number)
}

// lifecycleEvents translates an applied update into the notification events
// it triggers. Unlike the audit trail, an update can emit several events.
func (s *TicketService) lifecycleEvents(prev, next *domain.Ticket, actorID string) []events.Event {
	var result []events.Event

	if assigneeChanged(prev.AssignedTo, next.AssignedTo) && next.AssignedTo != nil {
		result = append(result, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: next.ID,
			ActorID:  actorID,
			Payload: events.TicketAssignedPayload{
				Number:     next.Number,
				AssigneeID: *next.AssignedTo,
			},
		})
	}

	if prev.Status != next.Status {
		switch next.Status {
		case domain.TicketStatusWithIT:
			result = append(result, events.Event{
				Type:     events.EventTicketEscalated,
				TicketID: next.ID,
				ActorID:  actorID,
				Payload: events.TicketEscalatedPayload{
					Number:  next.Number,
					Subject: next.Subject,
				},
			})
		case domain.TicketStatusResolved:
			result = append(result, events.Event{
				Type:     events.EventTicketResolved,
				TicketID: next.ID,
				ActorID:  actorID,
				Payload: events.TicketResolvedPayload{
					Number:     next.Number,
					AssigneeID: next.AssignedTo,
				},
			})
		case domain.TicketStatusClosed:
			result = append(result, events.Event{
				Type:     events.EventTicketClosed,
				TicketID: next.ID,
				ActorID:  actorID,
				Payload:  events.TicketClosedPayload{Number: next.Number},
			})
		case domain.TicketStatusInProgress:
			// IT handing a ticket back to customer service marks it fixed.
			if prev.Status == domain.TicketStatusWithIT {
				result = append(result, events.Event{
					Type:     events.EventTicketFixed,
					TicketID: next.ID,
					ActorID:  actorID,
					Payload: events.TicketFixedPayload{
						Number:    next.Number,
						CreatorID: next.CreatedBy,
					},
				})
			}
		}
	}
	return result
}

func assigneeChanged(prev, next *string) bool {
	switch {
	case prev == nil && next == nil:
		return false
	case prev == nil || next == nil:
		return true
	default:
		return *prev != *next
	}
}

func validPriority(p domain.TicketPriority) bool {
	switch p {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
		return true
	}
	return false
}

func validStatus(s domain.TicketStatus) bool {
	switch s {
	case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPendingReview,
		domain.TicketStatusWithIT, domain.TicketStatusResolved, domain.TicketStatusClosed:
		return true
	}
	return false
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
