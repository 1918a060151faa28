package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const (
	presenceTTL    = 60 * time.Second
	maxMessageSize = 4000
)

// ChatService handles agent-to-agent conversations, messages, read state
// and presence.
type ChatService struct {
	chats  repository.ChatRepository
	agents repository.AgentRepository
	cache  *persistence.Redis
	logger *zap.Logger
}

// ChatDependencies bundles requirements for the chat service.
type ChatDependencies struct {
	ChatRepo  repository.ChatRepository
	AgentRepo repository.AgentRepository
	Cache     *persistence.Redis
	Logger    *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		chats:  deps.ChatRepo,
		agents: deps.AgentRepo,
		cache:  deps.Cache,
		logger: deps.Logger,
	}
}

// ListConversations returns the agent's threads with per-thread unread
// counts, newest activity first.
func (s *ChatService) ListConversations(ctx context.Context, agentID string) ([]repository.ConversationView, error) {
	views, err := s.chats.ListConversationsForAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if views == nil {
		views = []repository.ConversationView{}
	}
	return views, nil
}

// OpenDirect finds or creates the two-party direct thread between the
// requesting agent and the peer. Repeated calls return the same
// conversation.
func (s *ChatService) OpenDirect(ctx context.Context, agentID, peerID string) (*domain.Conversation, error) {
	if peerID == "" {
		return nil, apperrors.NewValidationError("peer agent id required", nil)
	}
	if peerID == agentID {
		return nil, apperrors.NewValidationError("cannot start a conversation with yourself", nil)
	}
	if _, err := s.agents.GetByID(ctx, peerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": peerID})
		}
		return nil, apperrors.MapError(err)
	}

	existing, err := s.chats.FindDirectBetween(ctx, agentID, peerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	conv := &domain.Conversation{Type: domain.ConversationDirect}
	if err := s.chats.CreateConversation(ctx, conv, []string{agentID, peerID}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

// CreateGroup creates a named group thread including the creator.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*domain.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("group name required", nil)
	}
	participants := appendUnique(memberIDs, creatorID)
	if len(participants) < 2 {
		return nil, apperrors.NewValidationError("a group needs at least two participants", nil)
	}

	conv := &domain.Conversation{Type: domain.ConversationGroup, Name: name}
	if err := s.chats.CreateConversation(ctx, conv, participants); err != nil {
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

// ListMessages pages through a conversation the agent participates in,
// oldest first.
func (s *ChatService) ListMessages(ctx context.Context, agentID, conversationID string, limit, offset int) ([]domain.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, agentID); err != nil {
		return nil, err
	}
	messages, err := s.chats.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// SendMessage appends a text message and advances the sender's read marker.
func (s *ChatService) SendMessage(ctx context.Context, agentID, conversationID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}
	if len(body) > maxMessageSize {
		return nil, apperrors.NewValidationError("message too long", map[string]any{"max": maxMessageSize})
	}
	if err := s.requireParticipant(ctx, conversationID, agentID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       agentID,
		Body:           body,
		Type:           domain.MessageTypeText,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	// Sending implies having seen everything before it.
	if err := s.chats.MarkRead(ctx, conversationID, agentID, msg.CreatedAt); err != nil {
		s.logger.Warn("advance read marker failed",
			zap.String("conversation_id", conversationID),
			zap.String("agent_id", agentID),
			zap.Error(err))
	}
	return msg, nil
}

// MarkRead sets the agent's read marker to now.
func (s *ChatService) MarkRead(ctx context.Context, agentID, conversationID string) error {
	if err := s.requireParticipant(ctx, conversationID, agentID); err != nil {
		return err
	}
	if err := s.chats.MarkRead(ctx, conversationID, agentID, time.Now()); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Heartbeat refreshes the agent's presence key. Absence of the key after the
// TTL means offline.
func (s *ChatService) Heartbeat(ctx context.Context, agentID string) error {
	client := s.presenceClient()
	if client == nil {
		return nil
	}
	if err := client.Set(ctx, presenceKey(agentID), "1", presenceTTL).Err(); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Presence reports which of the given agents currently hold a live
// presence key.
func (s *ChatService) Presence(ctx context.Context, agentIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(agentIDs))
	client := s.presenceClient()
	if client == nil {
		for _, id := range agentIDs {
			online[id] = false
		}
		return online, nil
	}
	for _, id := range agentIDs {
		count, err := client.Exists(ctx, presenceKey(id)).Result()
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		online[id] = count > 0
	}
	return online, nil
}

func (s *ChatService) requireParticipant(ctx context.Context, conversationID, agentID string) error {
	ok, err := s.chats.IsParticipant(ctx, conversationID, agentID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewForbidden("not a participant of this conversation")
	}
	return nil
}

func (s *ChatService) presenceClient() *redis.Client {
	if s.cache == nil {
		return nil
	}
	return s.cache.Handle()
}

func presenceKey(agentID string) string {
	return "presence:agent:" + agentID
}
