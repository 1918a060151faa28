package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// OpenDirectRequest payload for finding or creating a direct thread.
type OpenDirectRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// SendMessageRequest payload.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// ConversationResponse is one thread as seen by the requesting agent.
type ConversationResponse struct {
	ID                  string                  `json:"id"`
	Type                domain.ConversationType `json:"type"`
	Name                string                  `json:"name"`
	ParticipantIDs      []string                `json:"participant_ids"`
	LastMessageBody     *string                 `json:"last_message_body"`
	LastMessageSenderID *string                 `json:"last_message_sender_id"`
	LastMessageAt       *time.Time              `json:"last_message_at"`
	UnreadCount         int                     `json:"unread_count"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// MessageResponse is one chat message.
type MessageResponse struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Body           string             `json:"body"`
	Type           domain.MessageType `json:"type"`
	CreatedAt      time.Time          `json:"created_at"`
}

// PresenceResponse maps agent ids to online state.
type PresenceResponse map[string]bool
