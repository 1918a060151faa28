package domain

import "time"

// ConversationType differentiates direct threads from group channels.
type ConversationType string

const (
	ConversationDirect ConversationType = "DIRECT"
	ConversationGroup  ConversationType = "GROUP"
)

// Conversation is a chat thread between agents. The last message is cached
// on the row for list views.
type Conversation struct {
	ID                  string
	Type                ConversationType
	Name                string
	LastMessageBody     *string
	LastMessageSenderID *string
	LastMessageAt       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Participant captures conversation membership and read state.
type Participant struct {
	ConversationID string
	AgentID        string
	LastReadAt     *time.Time
	JoinedAt       time.Time
}

// MessageType differentiates message payloads.
type MessageType string

const (
	MessageTypeText MessageType = "TEXT"
)

// Message is a single chat message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	Type           MessageType
	CreatedAt      time.Time
}
