package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
)

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	log     []*domain.Activity
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	if activity != nil {
		activity.TicketID = ticket.ID
		r.log = append(r.log, activity)
	}
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	if activity != nil {
		activity.TicketID = ticket.ID
		r.log = append(r.log, activity)
	}
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(ticket.Subject), term) &&
				!strings.Contains(strings.ToLower(ticket.CustomerName), term) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) NextNumber(_ context.Context, base int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := int64(base)
	for _, ticket := range r.tickets {
		if n, err := strconv.ParseInt(ticket.Number, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10), nil
}

func (r *fakeTicketRepo) ListOverdue(_ context.Context, assignedTo *string, cutoff time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.AssignedTo == nil {
			continue
		}
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			continue
		}
		if !ticket.UpdatedAt.Before(cutoff) {
			continue
		}
		if assignedTo != nil && *ticket.AssignedTo != *assignedTo {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

// seed stores a ticket directly, bypassing the create path.
func (r *fakeTicketRepo) seed(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		r.nextID++
		ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	}
	r.tickets[ticket.ID] = &ticket
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

type fakeActivityRepo struct {
	mu  sync.Mutex
	log []*domain.Activity
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.ID = fmt.Sprintf("activity-%d", len(r.log)+1)
	activity.CreatedAt = time.Now()
	r.log = append(r.log, activity)
	return nil
}

func (r *fakeActivityRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Activity
	for _, activity := range r.log {
		if activity.TicketID == ticketID {
			result = append(result, *activity)
		}
	}
	return result, nil
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*domain.Agent
	nextID int
}

func newFakeAgentRepo(agents ...domain.Agent) *fakeAgentRepo {
	repo := &fakeAgentRepo{agents: make(map[string]*domain.Agent)}
	for i := range agents {
		agent := agents[i]
		repo.agents[agent.ID] = &agent
	}
	return repo
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	agent.ID = fmt.Sprintf("agent-%d", r.nextID)
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	copied := *agent
	r.agents[agent.ID] = &copied
	return nil
}

func (r *fakeAgentRepo) Update(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *agent
	r.agents[agent.ID] = &copied
	return nil
}

func (r *fakeAgentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.agents, id)
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.Email == email {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Agent
	for _, agent := range r.agents {
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		result = append(result, *agent)
	}
	return result, nil
}

func (r *fakeAgentRepo) ListByRoles(_ context.Context, roles ...domain.AgentRole) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roleSet := make(map[domain.AgentRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}
	var result []domain.Agent
	for _, agent := range r.agents {
		if !agent.Active {
			continue
		}
		if _, ok := roleSet[agent.Role]; ok {
			result = append(result, *agent)
		}
	}
	return result, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	rows   []*domain.Notification
	nextID int
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = fmt.Sprintf("notification-%d", r.nextID)
	notification.CreatedAt = time.Now()
	copied := *notification
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *fakeNotificationRepo) ListByAgent(_ context.Context, agentID string, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Notification
	for _, row := range r.rows {
		if row.AgentID == agentID {
			result = append(result, *row)
		}
	}
	return result, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, agentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, row := range r.rows {
		if row.AgentID == agentID && !row.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) HasOverdue(_ context.Context, agentID, ticketID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AgentID == agentID && row.Type == domain.NotificationOverdue &&
			row.TicketID != nil && *row.TicketID == ticketID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, agentID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id && row.AgentID == agentID {
			row.IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AgentID == agentID {
			row.IsRead = true
		}
	}
	return nil
}

type fakeNoteRepo struct {
	mu     sync.Mutex
	notes  map[string]*domain.Note
	nextID int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*domain.Note)}
}

func (r *fakeNoteRepo) Create(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	note.ID = fmt.Sprintf("note-%d", r.nextID)
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	copied := *note
	r.notes[note.ID] = &copied
	return nil
}

func (r *fakeNoteRepo) Update(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.notes[note.ID]
	if !ok || existing.AgentID != note.AgentID {
		return pgx.ErrNoRows
	}
	note.UpdatedAt = time.Now()
	copied := *note
	r.notes[note.ID] = &copied
	return nil
}

func (r *fakeNoteRepo) GetByID(_ context.Context, id string) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	note, ok := r.notes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *note
	return &copied, nil
}

func (r *fakeNoteRepo) ListByTicketAndAgent(_ context.Context, ticketID, agentID string) ([]domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Note
	for _, note := range r.notes {
		if note.TicketID == ticketID && note.AgentID == agentID {
			result = append(result, *note)
		}
	}
	return result, nil
}

type fakeChatRepo struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	participants  map[string][]*domain.Participant
	messages      []*domain.Message
	nextID        int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: make(map[string]*domain.Conversation),
		participants:  make(map[string][]*domain.Participant),
	}
}

func (r *fakeChatRepo) CreateConversation(_ context.Context, conv *domain.Conversation, participantIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	conv.ID = fmt.Sprintf("conversation-%d", r.nextID)
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	copied := *conv
	r.conversations[conv.ID] = &copied
	for _, agentID := range participantIDs {
		r.participants[conv.ID] = append(r.participants[conv.ID], &domain.Participant{
			ConversationID: conv.ID,
			AgentID:        agentID,
			JoinedAt:       now,
		})
	}
	return nil
}

func (r *fakeChatRepo) FindDirectBetween(_ context.Context, agentA, agentB string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, conv := range r.conversations {
		if conv.Type != domain.ConversationDirect {
			continue
		}
		members := r.participants[id]
		if len(members) != 2 {
			continue
		}
		hasA, hasB := false, false
		for _, p := range members {
			if p.AgentID == agentA {
				hasA = true
			}
			if p.AgentID == agentB {
				hasB = true
			}
		}
		if hasA && hasB {
			copied := *conv
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeChatRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *conv
	return &copied, nil
}

func (r *fakeChatRepo) ListConversationsForAgent(_ context.Context, agentID string) ([]repository.ConversationView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []repository.ConversationView
	for id, conv := range r.conversations {
		var me *domain.Participant
		var members []domain.Participant
		for _, p := range r.participants[id] {
			members = append(members, *p)
			if p.AgentID == agentID {
				me = p
			}
		}
		if me == nil {
			continue
		}
		unread := 0
		for _, msg := range r.messages {
			if msg.ConversationID != id || msg.SenderID == agentID {
				continue
			}
			if me.LastReadAt == nil || msg.CreatedAt.After(*me.LastReadAt) {
				unread++
			}
		}
		result = append(result, repository.ConversationView{
			Conversation: *conv,
			Participants: members,
			Unread:       unread,
		})
	}
	return result, nil
}

func (r *fakeChatRepo) IsParticipant(_ context.Context, conversationID, agentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[conversationID] {
		if p.AgentID == agentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeChatRepo) CreateMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[msg.ConversationID]
	if !ok {
		return pgx.ErrNoRows
	}
	r.nextID++
	msg.ID = fmt.Sprintf("message-%d", r.nextID)
	msg.CreatedAt = time.Now()
	copied := *msg
	r.messages = append(r.messages, &copied)

	body := msg.Body
	sender := msg.SenderID
	at := msg.CreatedAt
	conv.LastMessageBody = &body
	conv.LastMessageSenderID = &sender
	conv.LastMessageAt = &at
	conv.UpdatedAt = at
	return nil
}

func (r *fakeChatRepo) ListMessages(_ context.Context, conversationID string, _, _ int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID {
			result = append(result, *msg)
		}
	}
	return result, nil
}

func (r *fakeChatRepo) MarkRead(_ context.Context, conversationID, agentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[conversationID] {
		if p.AgentID == agentID {
			read := at
			p.LastReadAt = &read
			return nil
		}
	}
	return pgx.ErrNoRows
}
