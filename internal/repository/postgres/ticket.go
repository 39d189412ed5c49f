package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

type ticketRepository struct {
	db DBTX
}

func NewTicketRepository(db DBTX) repository.TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		INSERT INTO tickets (type, status)
		VALUES ($1, $2)
		RETURNING id
	`

	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusAvailable
	}

	if err := r.db.QueryRow(ctx, query, ticket.Type, ticket.Status).Scan(&ticket.ID); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `
		SELECT id, type, status
		FROM tickets
		WHERE id = $1
	`

	return r.getOne(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `
		SELECT id, type, status
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`

	return r.getOne(ctx, query, id)
}

func (r *ticketRepository) getOne(ctx context.Context, query string, id int64) (*domain.Ticket, error) {
	ticket := &domain.Ticket{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Type,
		&ticket.Status,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, mapError(err)
	}

	return ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error {
	query := `
		UPDATE tickets
		SET status = $2
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}

	return nil
}
