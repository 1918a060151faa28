package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// NoteRepository manages private ticket notes. Notes are only ever read back
// scoped to the authoring agent.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	Update(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	ListByTicketAndAgent(ctx context.Context, ticketID, agentID string) ([]domain.Note, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        INSERT INTO notes (ticket_id, agent_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		note.TicketID,
		note.AgentID,
		note.Content,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
}

func (r *noteRepository) Update(ctx context.Context, note *domain.Note) error {
	const query = `
        UPDATE notes SET content=$1, updated_at=NOW()
        WHERE id=$2 AND agent_id=$3`
	cmd, err := r.pool.Exec(ctx, query, note.Content, note.ID, note.AgentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	const query = `
        SELECT id, ticket_id, agent_id, content, created_at, updated_at
        FROM notes WHERE id=$1`
	var note domain.Note
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&note.ID,
		&note.TicketID,
		&note.AgentID,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) ListByTicketAndAgent(ctx context.Context, ticketID, agentID string) ([]domain.Note, error) {
	const query = `
        SELECT id, ticket_id, agent_id, content, created_at, updated_at
        FROM notes WHERE ticket_id=$1 AND agent_id=$2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.AgentID,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
