package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// NotificationRepository stores fan-out rows. Every method tolerates a
// missing notifications table (partially migrated environments) by acting as
// a no-op instead of failing the caller.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, agentID string) (int, error)
	HasOverdue(ctx context.Context, agentID, ticketID string) (bool, error)
	MarkRead(ctx context.Context, agentID, id string) error
	MarkAllRead(ctx context.Context, agentID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

// undefined_table
const pgUndefinedTable = "42P01"

func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (agent_id, type, title, description, ticket_id, is_read)
        VALUES ($1,$2,$3,$4,$5,FALSE)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		notification.AgentID,
		notification.Type,
		notification.Title,
		notification.Description,
		notification.TicketID,
	).Scan(&notification.ID, &notification.CreatedAt)
	if isMissingTable(err) {
		return nil
	}
	return err
}

func (r *notificationRepository) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, agent_id, type, title, description, ticket_id, is_read, created_at
        FROM notifications WHERE agent_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		if isMissingTable(err) {
			return []domain.Notification{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.AgentID,
			&n.Type,
			&n.Title,
			&n.Description,
			&n.TicketID,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, agentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE agent_id=$1 AND NOT is_read`
	var count int
	if err := r.pool.QueryRow(ctx, query, agentID).Scan(&count); err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) HasOverdue(ctx context.Context, agentID, ticketID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notifications
            WHERE agent_id=$1 AND ticket_id=$2 AND type=$3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, agentID, ticketID, domain.NotificationOverdue).Scan(&exists); err != nil {
		if isMissingTable(err) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, agentID, id string) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND agent_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, agentID)
	if err != nil {
		if isMissingTable(err) {
			return nil
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, agentID string) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE agent_id=$1 AND NOT is_read`
	_, err := r.pool.Exec(ctx, query, agentID)
	if isMissingTable(err) {
		return nil
	}
	return err
}
