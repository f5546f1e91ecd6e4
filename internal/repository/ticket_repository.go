package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-desk/internal/domain"
)

// TicketRepository is the persistence adapter behind the ticket store.
// Update must report domain.ErrTicketNotFound for unknown ids, and a
// successful write must be visible to the next LoadAll.
type TicketRepository interface {
	LoadAll(ctx context.Context) ([]domain.Ticket, error)
	Insert(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed implementation.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	attachment, comments, err := encodeExtras(ticket)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status, created_by,
            assignee_id, attachment, comments, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10::jsonb,$11,$12)`
	_, err = r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Category),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CreatedBy,
		ticket.AssigneeID,
		attachment,
		comments,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	attachment, comments, err := encodeExtras(ticket)
	if err != nil {
		return err
	}

	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, priority=$4, status=$5,
            assignee_id=$6, attachment=$7::jsonb, comments=$8::jsonb, updated_at=$9
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Category),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.AssigneeID,
		attachment,
		comments,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *ticketRepository) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, category, priority, status, created_by, assignee_id,
               attachment, comments, created_at, updated_at
        FROM tickets ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var (
			ticket                       domain.Ticket
			category, priority, status   string
			attachmentJSON, commentsJSON []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&category,
			&priority,
			&status,
			&ticket.CreatedBy,
			&ticket.AssigneeID,
			&attachmentJSON,
			&commentsJSON,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.Category = domain.TicketCategory(category)
		ticket.Priority = domain.TicketPriority(priority)
		ticket.Status = domain.TicketStatus(status)
		if err := decodeExtras(&ticket, attachmentJSON, commentsJSON); err != nil {
			return nil, err
		}
		if err := ticket.Validate(); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
