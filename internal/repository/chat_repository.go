package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ConversationView is a conversation as seen by one agent: the row, its
// participants, and the agent's derived unread count.
type ConversationView struct {
	Conversation domain.Conversation
	Participants []domain.Participant
	Unread       int
}

// ChatRepository manages conversations, participants and messages.
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *domain.Conversation, participantIDs []string) error
	FindDirectBetween(ctx context.Context, agentA, agentB string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversationsForAgent(ctx context.Context, agentID string) ([]ConversationView, error)
	IsParticipant(ctx context.Context, conversationID, agentID string) (bool, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID, agentID string, at time.Time) error
}

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository builds repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

func (r *chatRepository) CreateConversation(ctx context.Context, conv *domain.Conversation, participantIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const convQuery = `
        INSERT INTO conversations (type, name)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, convQuery, conv.Type, conv.Name).
		Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return err
	}

	const partQuery = `
        INSERT INTO conversation_participants (conversation_id, agent_id)
        VALUES ($1,$2)`
	for _, agentID := range participantIDs {
		if _, err := tx.Exec(ctx, partQuery, conv.ID, agentID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const conversationSelect = `
        SELECT id, type, name, last_message_body, last_message_sender_id, last_message_at,
               created_at, updated_at
        FROM conversations`

// FindDirectBetween locates an existing two-party direct thread so the
// service can avoid creating duplicates.
func (r *chatRepository) FindDirectBetween(ctx context.Context, agentA, agentB string) (*domain.Conversation, error) {
	const query = conversationSelect + `
        WHERE type=$1
          AND id IN (SELECT conversation_id FROM conversation_participants WHERE agent_id=$2)
          AND id IN (SELECT conversation_id FROM conversation_participants WHERE agent_id=$3)
          AND (SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id=conversations.id) = 2
        LIMIT 1`
	return r.fetchConversation(ctx, query, domain.ConversationDirect, agentA, agentB)
}

func (r *chatRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.fetchConversation(ctx, conversationSelect+` WHERE id=$1`, id)
}

func (r *chatRepository) fetchConversation(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&conv.ID,
		&conv.Type,
		&conv.Name,
		&conv.LastMessageBody,
		&conv.LastMessageSenderID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) ListConversationsForAgent(ctx context.Context, agentID string) ([]ConversationView, error) {
	const query = `
        SELECT c.id, c.type, c.name, c.last_message_body, c.last_message_sender_id, c.last_message_at,
               c.created_at, c.updated_at,
               (SELECT COUNT(*) FROM messages m
                WHERE m.conversation_id = c.id
                  AND m.sender_id <> $1
                  AND m.created_at > COALESCE(me.last_read_at, 'epoch'::timestamptz)) AS unread
        FROM conversations c
        JOIN conversation_participants me ON me.conversation_id = c.id AND me.agent_id = $1
        ORDER BY c.updated_at DESC`
	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []ConversationView
	for rows.Next() {
		var view ConversationView
		if err := rows.Scan(
			&view.Conversation.ID,
			&view.Conversation.Type,
			&view.Conversation.Name,
			&view.Conversation.LastMessageBody,
			&view.Conversation.LastMessageSenderID,
			&view.Conversation.LastMessageAt,
			&view.Conversation.CreatedAt,
			&view.Conversation.UpdatedAt,
			&view.Unread,
		); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		participants, err := r.listParticipants(ctx, views[i].Conversation.ID)
		if err != nil {
			return nil, err
		}
		views[i].Participants = participants
	}
	return views, nil
}

func (r *chatRepository) listParticipants(ctx context.Context, conversationID string) ([]domain.Participant, error) {
	const query = `
        SELECT conversation_id, agent_id, last_read_at, joined_at
        FROM conversation_participants WHERE conversation_id=$1`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ConversationID, &p.AgentID, &p.LastReadAt, &p.JoinedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *chatRepository) IsParticipant(ctx context.Context, conversationID, agentID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM conversation_participants WHERE conversation_id=$1 AND agent_id=$2
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, conversationID, agentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateMessage appends the row and refreshes the conversation's cached last
// message in the same transaction.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const msgQuery = `
        INSERT INTO messages (conversation_id, sender_id, body, type)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, msgQuery,
		msg.ConversationID,
		msg.SenderID,
		msg.Body,
		msg.Type,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}

	const convQuery = `
        UPDATE conversations
        SET last_message_body=$1, last_message_sender_id=$2, last_message_at=$3, updated_at=NOW()
        WHERE id=$4`
	if _, err := tx.Exec(ctx, convQuery, msg.Body, msg.SenderID, msg.CreatedAt, msg.ConversationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *chatRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, conversation_id, sender_id, body, type, created_at
        FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Body,
			&msg.Type,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *chatRepository) MarkRead(ctx context.Context, conversationID, agentID string, at time.Time) error {
	const query = `
        UPDATE conversation_participants SET last_read_at=$1
        WHERE conversation_id=$2 AND agent_id=$3`
	cmd, err := r.pool.Exec(ctx, query, at, conversationID, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
