package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const badgeCacheTTL = 15 * time.Second

// NotificationService fans ticket lifecycle events out to notification rows
// and serves each agent's notification feed. Fan-out is fire-and-forget:
// failures are logged, never surfaced to the triggering request.
type NotificationService struct {
	notifications repository.NotificationRepository
	agents        repository.AgentRepository
	tickets       repository.TicketRepository
	dispatcher    events.Dispatcher
	cache         *persistence.Redis
	logger        *zap.Logger
	policy        config.SupportConfig
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	AgentRepo        repository.AgentRepository
	TicketRepo       repository.TicketRepository
	Dispatcher       events.Dispatcher
	Cache            *persistence.Redis
	Logger           *zap.Logger
	Policy           config.SupportConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		agents:        deps.AgentRepo,
		tickets:       deps.TicketRepo,
		dispatcher:    deps.Dispatcher,
		cache:         deps.Cache,
		logger:        deps.Logger,
		policy:        deps.Policy,
	}
}

// RegisterHandlers subscribes to ticket lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
	n.dispatcher.Subscribe(events.EventTicketFixed, n.handleTicketFixed)
	n.dispatcher.Subscribe(events.EventNoteAdded, n.handleNoteAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	recipients, err := n.agentIDsByRole(ctx, domain.AgentRoleSenior, domain.AgentRoleJunior, domain.AgentRoleAdmin)
	if err != nil {
		n.logWarn("resolve new-ticket recipients", event, err)
		return nil
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationNewTicket,
		fmt.Sprintf("New ticket #%s", payload.Number), payload.Subject, recipients)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeID == "" {
		return nil
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationAssigned,
		fmt.Sprintf("Ticket #%s assigned to you", payload.Number), "", []string{payload.AssigneeID})
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	recipients, err := n.agentIDsByRole(ctx, domain.AgentRoleIT, domain.AgentRoleAdmin)
	if err != nil {
		n.logWarn("resolve escalation recipients", event, err)
		return nil
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationEscalated,
		fmt.Sprintf("Ticket #%s escalated to IT", payload.Number), payload.Subject, recipients)
	return nil
}

func (n *NotificationService) handleTicketResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return nil
	}
	recipients, err := n.agentIDsByRole(ctx, domain.AgentRoleAdmin)
	if err != nil {
		n.logWarn("resolve resolution recipients", event, err)
		return nil
	}
	if payload.AssigneeID != nil {
		recipients = appendUnique(recipients, *payload.AssigneeID)
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationResolved,
		fmt.Sprintf("Ticket #%s resolved", payload.Number), "", recipients)
	return nil
}

func (n *NotificationService) handleTicketFixed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketFixedPayload)
	if !ok || payload.CreatorID == "" {
		return nil
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationFixed,
		fmt.Sprintf("Ticket #%s fixed by IT", payload.Number), "", []string{payload.CreatorID})
	return nil
}

func (n *NotificationService) handleNoteAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NoteAddedPayload)
	if !ok {
		return nil
	}
	// Only the assignee cares, and not about their own notes.
	if payload.AssigneeID == nil || *payload.AssigneeID == payload.AuthorID {
		return nil
	}
	n.fanOut(ctx, event.TicketID, domain.NotificationNoteAdded,
		fmt.Sprintf("Note added to ticket #%s", payload.Number), "", []string{*payload.AssigneeID})
	return nil
}

// List returns the agent's notification feed, lazily materializing overdue
// notifications first.
func (n *NotificationService) List(ctx context.Context, agent *domain.Agent, limit, offset int) ([]domain.Notification, int, error) {
	n.ensureOverdue(ctx, agent)

	items, err := n.notifications.ListByAgent(ctx, agent.ID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Notification{}
	}
	unread, err := n.unreadCount(ctx, agent.ID)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return items, unread, nil
}

// MarkRead marks one of the agent's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, agentID, notificationID string) error {
	if err := n.notifications.MarkRead(ctx, agentID, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	n.invalidateBadge(ctx, agentID)
	return nil
}

// MarkAllRead marks every unread notification for the agent as read, leaving
// other agents' rows untouched.
func (n *NotificationService) MarkAllRead(ctx context.Context, agentID string) error {
	if err := n.notifications.MarkAllRead(ctx, agentID); err != nil {
		return apperrors.MapError(err)
	}
	n.invalidateBadge(ctx, agentID)
	return nil
}

// ensureOverdue inserts a one-time overdue notification per (agent, ticket)
// for assigned tickets untouched beyond the threshold. Admins see every
// assigned ticket; other agents only their own. Best effort throughout.
func (n *NotificationService) ensureOverdue(ctx context.Context, agent *domain.Agent) {
	var assignee *string
	if agent.Role != domain.AgentRoleAdmin {
		assignee = &agent.ID
	}
	cutoff := n.policy.OverdueCutoff(time.Now())

	overdue, err := n.tickets.ListOverdue(ctx, assignee, cutoff)
	if err != nil {
		n.logger.Warn("overdue scan failed", zap.String("agent_id", agent.ID), zap.Error(err))
		return
	}
	for i := range overdue {
		ticket := &overdue[i]
		exists, err := n.notifications.HasOverdue(ctx, agent.ID, ticket.ID)
		if err != nil || exists {
			continue
		}
		ticketID := ticket.ID
		err = n.notifications.Create(ctx, &domain.Notification{
			AgentID:     agent.ID,
			Type:        domain.NotificationOverdue,
			Title:       fmt.Sprintf("Ticket #%s is overdue", ticket.Number),
			Description: ticket.Subject,
			TicketID:    &ticketID,
		})
		if err != nil {
			n.logger.Warn("overdue notification insert failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	n.invalidateBadge(ctx, agent.ID)
}

func (n *NotificationService) fanOut(ctx context.Context, ticketID string, typ domain.NotificationType, title, description string, recipients []string) {
	for _, agentID := range recipients {
		id := ticketID
		err := n.notifications.Create(ctx, &domain.Notification{
			AgentID:     agentID,
			Type:        typ,
			Title:       title,
			Description: description,
			TicketID:    &id,
		})
		if err != nil {
			n.logger.Warn("notification insert failed",
				zap.String("agent_id", agentID),
				zap.String("ticket_id", ticketID),
				zap.String("type", string(typ)),
				zap.Error(err))
			continue
		}
		n.invalidateBadge(ctx, agentID)
	}
}

func (n *NotificationService) agentIDsByRole(ctx context.Context, roles ...domain.AgentRole) ([]string, error) {
	agents, err := n.agents.ListByRoles(ctx, roles...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(agents))
	for _, agent := range agents {
		ids = append(ids, agent.ID)
	}
	return ids, nil
}

// unreadCount serves the polling badge from a short-lived Redis cache when
// available, falling back to a direct count.
func (n *NotificationService) unreadCount(ctx context.Context, agentID string) (int, error) {
	key := badgeKey(agentID)
	if client := n.cacheClient(); client != nil {
		if val, err := client.Get(ctx, key).Result(); err == nil {
			if count, convErr := strconv.Atoi(val); convErr == nil {
				return count, nil
			}
		}
	}
	count, err := n.notifications.CountUnread(ctx, agentID)
	if err != nil {
		return 0, err
	}
	if client := n.cacheClient(); client != nil {
		_ = client.Set(ctx, key, strconv.Itoa(count), badgeCacheTTL).Err()
	}
	return count, nil
}

func (n *NotificationService) invalidateBadge(ctx context.Context, agentID string) {
	if client := n.cacheClient(); client != nil {
		_ = client.Del(ctx, badgeKey(agentID)).Err()
	}
}

func (n *NotificationService) cacheClient() *redis.Client {
	if n.cache == nil {
		return nil
	}
	return n.cache.Handle()
}

func badgeKey(agentID string) string {
	return "notif:unread:" + agentID
}

func (n *NotificationService) logWarn(msg string, event events.Event, err error) {
	n.logger.Warn(msg,
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Error(err))
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
