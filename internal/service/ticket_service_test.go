package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

func testPolicy() config.SupportConfig {
	return config.SupportConfig{
		TicketNumberBase:  10000,
		DefaultSource:     "WEB",
		OverdueAfterHours: 24,
		SeniorTarget:      40,
		JuniorTarget:      30,
	}
}

func newTicketFixture() (*TicketService, *fakeTicketRepo, *recordingDispatcher) {
	repo := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   repo,
		ActivityRepo: &fakeActivityRepo{},
		Dispatcher:   dispatcher,
		Policy:       testPolicy(),
	})
	return svc, repo, dispatcher
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults and sequential numbers", func(t *testing.T) {
		svc, repo, dispatcher := newTicketFixture()

		first, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{
			Subject:      "Printer on fire",
			CustomerName: "ACME",
		})
		require.NoError(t, err)
		assert.Equal(t, "10001", first.Number)
		assert.Equal(t, domain.TicketStatusOpen, first.Status)
		assert.Equal(t, domain.TicketPriorityMedium, first.Priority)
		assert.Equal(t, "WEB", first.Source)
		assert.Nil(t, first.AssignedAt)
		assert.Nil(t, first.ClosedAt)

		second, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{
			Subject:      "Login broken",
			CustomerName: "ACME",
		})
		require.NoError(t, err)
		assert.Equal(t, "10002", second.Number)

		require.Len(t, repo.log, 2)
		assert.Equal(t, domain.ActivityTicketCreated, repo.log[0].Action)
		assert.Len(t, dispatcher.byType(events.EventTicketCreated), 2)
	})

	t.Run("stamps assigned_at when created assigned", func(t *testing.T) {
		svc, _, _ := newTicketFixture()
		assignee := "agent-2"

		ticket, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{
			Subject:      "VPN down",
			CustomerName: "ACME",
			AssignedTo:   &assignee,
		})
		require.NoError(t, err)
		require.NotNil(t, ticket.AssignedTo)
		assert.Equal(t, assignee, *ticket.AssignedTo)
		assert.NotNil(t, ticket.AssignedAt)
	})

	t.Run("rejects missing subject or customer", func(t *testing.T) {
		svc, _, _ := newTicketFixture()
		_, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{Subject: "  ", CustomerName: "ACME"})
		assert.Error(t, err)
		_, err = svc.CreateTicket(ctx, "agent-1", TicketCreateInput{Subject: "help", CustomerName: ""})
		assert.Error(t, err)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		svc, _, _ := newTicketFixture()
		_, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{
			Subject:      "help",
			CustomerName: "ACME",
			Priority:     domain.TicketPriority("URGENT"),
		})
		assert.Error(t, err)
	})
}

func TestUpdateTicket(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, svc *TicketService) *domain.Ticket {
		t.Helper()
		ticket, err := svc.CreateTicket(ctx, "agent-1", TicketCreateInput{
			Subject:      "Slow database",
			CustomerName: "ACME",
		})
		require.NoError(t, err)
		return ticket
	}

	t.Run("closing stamps closed_at and reopening clears it", func(t *testing.T) {
		svc, repo, _ := newTicketFixture()
		ticket := create(t, svc)

		closed := domain.TicketStatusClosed
		updated, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{Status: &closed})
		require.NoError(t, err)
		require.NotNil(t, updated.ClosedAt)
		assert.Equal(t, domain.ActivityTicketClosed, repo.log[len(repo.log)-1].Action)

		open := domain.TicketStatusOpen
		reopened, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{Status: &open})
		require.NoError(t, err)
		assert.Nil(t, reopened.ClosedAt)
	})

	t.Run("first assignment stamps assigned_at once", func(t *testing.T) {
		svc, _, dispatcher := newTicketFixture()
		ticket := create(t, svc)

		assignee := "agent-2"
		updated, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{AssignedTo: &assignee})
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedAt)
		firstStamp := *updated.AssignedAt

		other := "agent-3"
		reassigned, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{AssignedTo: &other})
		require.NoError(t, err)
		require.NotNil(t, reassigned.AssignedAt)
		assert.True(t, reassigned.AssignedAt.Equal(firstStamp))

		assert.Len(t, dispatcher.byType(events.EventTicketAssigned), 2)
	})

	t.Run("assignment wins over status in the audit row", func(t *testing.T) {
		svc, repo, dispatcher := newTicketFixture()
		ticket := create(t, svc)

		assignee := "agent-2"
		resolved := domain.TicketStatusResolved
		_, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{
			AssignedTo: &assignee,
			Status:     &resolved,
		})
		require.NoError(t, err)

		last := repo.log[len(repo.log)-1]
		assert.Equal(t, domain.ActivityTicketAssigned, last.Action)
		// Both events still fire even though the audit trail records one row.
		assert.Len(t, dispatcher.byType(events.EventTicketAssigned), 1)
		assert.Len(t, dispatcher.byType(events.EventTicketResolved), 1)
	})

	t.Run("IT handing back emits a fixed event for the creator", func(t *testing.T) {
		svc, _, dispatcher := newTicketFixture()
		ticket := create(t, svc)

		withIT := domain.TicketStatusWithIT
		_, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{Status: &withIT})
		require.NoError(t, err)
		assert.Len(t, dispatcher.byType(events.EventTicketEscalated), 1)

		inProgress := domain.TicketStatusInProgress
		_, err = svc.UpdateTicket(ctx, "agent-it", ticket.ID, TicketUpdateInput{Status: &inProgress})
		require.NoError(t, err)

		fixed := dispatcher.byType(events.EventTicketFixed)
		require.Len(t, fixed, 1)
		payload, ok := fixed[0].Payload.(events.TicketFixedPayload)
		require.True(t, ok)
		assert.Equal(t, "agent-1", payload.CreatorID)
	})

	t.Run("empty assignee clears assignment", func(t *testing.T) {
		svc, repo, _ := newTicketFixture()
		ticket := create(t, svc)

		assignee := "agent-2"
		_, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{AssignedTo: &assignee})
		require.NoError(t, err)

		empty := ""
		updated, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{AssignedTo: &empty})
		require.NoError(t, err)
		assert.Nil(t, updated.AssignedTo)
		assert.Equal(t, domain.ActivityTicketAssigned, repo.log[len(repo.log)-1].Action)
	})

	t.Run("rejects deprecated and unknown statuses", func(t *testing.T) {
		svc, _, _ := newTicketFixture()
		ticket := create(t, svc)

		triage := domain.TicketStatusTriage
		_, err := svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{Status: &triage})
		assert.Error(t, err)

		bogus := domain.TicketStatus("ARCHIVED")
		_, err = svc.UpdateTicket(ctx, "agent-1", ticket.ID, TicketUpdateInput{Status: &bogus})
		assert.Error(t, err)
	})

	t.Run("unknown ticket is not found", func(t *testing.T) {
		svc, _, _ := newTicketFixture()
		open := domain.TicketStatusOpen
		_, err := svc.UpdateTicket(ctx, "agent-1", "missing", TicketUpdateInput{Status: &open})
		assert.Error(t, err)
	})
}

func TestDeriveActivity(t *testing.T) {
	base := domain.Ticket{Number: "10001", Status: domain.TicketStatusOpen}

	t.Run("plain edit", func(t *testing.T) {
		next := base
		next.Subject = "changed"
		action, _ := deriveActivity(&base, &next)
		assert.Equal(t, domain.ActivityTicketUpdated, action)
	})

	t.Run("escalation", func(t *testing.T) {
		next := base
		next.Status = domain.TicketStatusWithIT
		action, _ := deriveActivity(&base, &next)
		assert.Equal(t, domain.ActivityTicketEscalated, action)
	})

	t.Run("resolution", func(t *testing.T) {
		next := base
		next.Status = domain.TicketStatusResolved
		action, _ := deriveActivity(&base, &next)
		assert.Equal(t, domain.ActivityTicketResolved, action)
	})

	t.Run("status move without special meaning", func(t *testing.T) {
		next := base
		next.Status = domain.TicketStatusInProgress
		action, details := deriveActivity(&base, &next)
		assert.Equal(t, domain.ActivityTicketUpdated, action)
		assert.Contains(t, details, "OPEN")
		assert.Contains(t, details, "IN_PROGRESS")
	})
}

func TestTicketCompletionWindow(t *testing.T) {
	now := time.Now()

	t.Run("counts a normal handling window", func(t *testing.T) {
		assigned := now.Add(-10 * time.Hour)
		ticket := domain.Ticket{AssignedAt: &assigned, ClosedAt: &now}
		hours, ok := ticket.HandlingHours()
		require.True(t, ok)
		assert.InDelta(t, 10, hours, 0.01)
	})

	t.Run("excludes outliers", func(t *testing.T) {
		assigned := now.Add(-800 * time.Hour)
		ticket := domain.Ticket{AssignedAt: &assigned, ClosedAt: &now}
		_, ok := ticket.HandlingHours()
		assert.False(t, ok)

		inverted := domain.Ticket{AssignedAt: &now, ClosedAt: &assigned}
		_, ok = inverted.HandlingHours()
		assert.False(t, ok)
	})

	t.Run("requires both timestamps", func(t *testing.T) {
		ticket := domain.Ticket{ClosedAt: &now}
		_, ok := ticket.HandlingHours()
		assert.False(t, ok)
	})
}
