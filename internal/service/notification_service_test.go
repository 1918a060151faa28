package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

type notificationFixture struct {
	svc        *NotificationService
	repo       *fakeNotificationRepo
	tickets    *fakeTicketRepo
	dispatcher events.Dispatcher
}

func newNotificationFixture() *notificationFixture {
	repo := &fakeNotificationRepo{}
	tickets := newFakeTicketRepo()
	agents := newFakeAgentRepo(
		domain.Agent{ID: "senior-1", Role: domain.AgentRoleSenior, Active: true},
		domain.Agent{ID: "junior-1", Role: domain.AgentRoleJunior, Active: true},
		domain.Agent{ID: "it-1", Role: domain.AgentRoleIT, Active: true},
		domain.Agent{ID: "admin-1", Role: domain.AgentRoleAdmin, Active: true},
		domain.Agent{ID: "inactive-1", Role: domain.AgentRoleSenior, Active: false},
	)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(NotificationDependencies{
		NotificationRepo: repo,
		AgentRepo:        agents,
		TicketRepo:       tickets,
		Dispatcher:       dispatcher,
		Logger:           zap.NewNop(),
		Policy:           testPolicy(),
	})
	svc.RegisterHandlers()
	return &notificationFixture{svc: svc, repo: repo, tickets: tickets, dispatcher: dispatcher}
}

func (f *notificationFixture) recipients(typ domain.NotificationType) map[string]int {
	result := make(map[string]int)
	for _, row := range f.repo.rows {
		if row.Type == typ {
			result[row.AgentID]++
		}
	}
	return result
}

func TestNotificationFanOut(t *testing.T) {
	ctx := context.Background()

	t.Run("new ticket reaches customer service and admins", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: "ticket-1",
			Payload:  events.TicketCreatedPayload{Number: "10001", Subject: "hi", Priority: domain.TicketPriorityHigh},
		})

		got := f.recipients(domain.NotificationNewTicket)
		assert.Equal(t, map[string]int{"senior-1": 1, "junior-1": 1, "admin-1": 1}, got)
	})

	t.Run("assignment reaches only the assignee", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: "ticket-1",
			Payload:  events.TicketAssignedPayload{Number: "10001", AssigneeID: "junior-1"},
		})

		got := f.recipients(domain.NotificationAssigned)
		assert.Equal(t, map[string]int{"junior-1": 1}, got)
	})

	t.Run("escalation reaches IT and admins", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: "ticket-1",
			Payload:  events.TicketEscalatedPayload{Number: "10001", Subject: "broken"},
		})

		got := f.recipients(domain.NotificationEscalated)
		assert.Equal(t, map[string]int{"it-1": 1, "admin-1": 1}, got)
	})

	t.Run("resolution reaches admins plus the assignee without duplicates", func(t *testing.T) {
		f := newNotificationFixture()
		assignee := "senior-1"
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: "ticket-1",
			Payload:  events.TicketResolvedPayload{Number: "10001", AssigneeID: &assignee},
		})

		got := f.recipients(domain.NotificationResolved)
		assert.Equal(t, map[string]int{"admin-1": 1, "senior-1": 1}, got)
	})

	t.Run("fix reaches the ticket creator", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketFixed,
			TicketID: "ticket-1",
			Payload:  events.TicketFixedPayload{Number: "10001", CreatorID: "junior-1"},
		})

		got := f.recipients(domain.NotificationFixed)
		assert.Equal(t, map[string]int{"junior-1": 1}, got)
	})

	t.Run("note reaches the assignee unless they wrote it", func(t *testing.T) {
		f := newNotificationFixture()
		assignee := "senior-1"
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventNoteAdded,
			TicketID: "ticket-1",
			Payload:  events.NoteAddedPayload{Number: "10001", NoteID: "note-1", AuthorID: "junior-1", AssigneeID: &assignee},
		})
		assert.Equal(t, map[string]int{"senior-1": 1}, f.recipients(domain.NotificationNoteAdded))

		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventNoteAdded,
			TicketID: "ticket-1",
			Payload:  events.NoteAddedPayload{Number: "10001", NoteID: "note-2", AuthorID: "senior-1", AssigneeID: &assignee},
		})
		// Still just the first row; own notes stay silent.
		assert.Equal(t, map[string]int{"senior-1": 1}, f.recipients(domain.NotificationNoteAdded))
	})
}

func TestOverdueNotifications(t *testing.T) {
	ctx := context.Background()

	seedOverdue := func(f *notificationFixture, assignee string) {
		stale := time.Now().Add(-48 * time.Hour)
		f.tickets.seed(domain.Ticket{
			ID:         "ticket-stale",
			Number:     "10001",
			Subject:    "forgotten",
			Status:     domain.TicketStatusInProgress,
			AssignedTo: &assignee,
			CreatedAt:  stale,
			UpdatedAt:  stale,
		})
	}

	t.Run("materialized once per agent and ticket", func(t *testing.T) {
		f := newNotificationFixture()
		seedOverdue(f, "senior-1")
		agent := &domain.Agent{ID: "senior-1", Role: domain.AgentRoleSenior}

		items, unread, err := f.svc.List(ctx, agent, 50, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.NotificationOverdue, items[0].Type)
		assert.Equal(t, 1, unread)

		items, _, err = f.svc.List(ctx, agent, 50, 0)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("admins see other agents' overdue tickets", func(t *testing.T) {
		f := newNotificationFixture()
		seedOverdue(f, "senior-1")
		admin := &domain.Agent{ID: "admin-1", Role: domain.AgentRoleAdmin}

		items, _, err := f.svc.List(ctx, admin, 50, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.NotificationOverdue, items[0].Type)
	})

	t.Run("fresh tickets stay quiet", func(t *testing.T) {
		f := newNotificationFixture()
		assignee := "senior-1"
		f.tickets.seed(domain.Ticket{
			ID:         "ticket-fresh",
			Status:     domain.TicketStatusInProgress,
			AssignedTo: &assignee,
			UpdatedAt:  time.Now(),
		})
		agent := &domain.Agent{ID: "senior-1", Role: domain.AgentRoleSenior}

		items, _, err := f.svc.List(ctx, agent, 50, 0)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("mark all read is scoped to the agent", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: "ticket-1",
			Payload:  events.TicketCreatedPayload{Number: "10001"},
		})

		require.NoError(t, f.svc.MarkAllRead(ctx, "senior-1"))

		for _, row := range f.repo.rows {
			if row.AgentID == "senior-1" {
				assert.True(t, row.IsRead)
			} else {
				assert.False(t, row.IsRead)
			}
		}
	})

	t.Run("marking another agent's notification fails", func(t *testing.T) {
		f := newNotificationFixture()
		_ = f.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: "ticket-1",
			Payload:  events.TicketAssignedPayload{Number: "10001", AssigneeID: "junior-1"},
		})
		require.Len(t, f.repo.rows, 1)

		err := f.svc.MarkRead(ctx, "senior-1", f.repo.rows[0].ID)
		assert.Error(t, err)
		assert.False(t, f.repo.rows[0].IsRead)

		require.NoError(t, f.svc.MarkRead(ctx, "junior-1", f.repo.rows[0].ID))
		assert.True(t, f.repo.rows[0].IsRead)
	})
}
