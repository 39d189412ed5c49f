package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

type userTicketRepository struct {
	db DBTX
}

func NewUserTicketRepository(db DBTX) repository.UserTicketRepository {
	return &userTicketRepository{db: db}
}

func (r *userTicketRepository) Create(ctx context.Context, userTicket *domain.UserTicket) error {
	query := `
		INSERT INTO user_tickets (ticket_id, user_id, vehicle_id, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		userTicket.TicketID,
		userTicket.UserID,
		userTicket.VehicleID,
		userTicket.ValidFrom,
		userTicket.ValidTo,
	)

	return mapError(err)
}

func (r *userTicketRepository) GetByTicketID(ctx context.Context, ticketID int64) (*domain.UserTicket, error) {
	query := `
		SELECT ticket_id, user_id, vehicle_id, valid_from, valid_to
		FROM user_tickets
		WHERE ticket_id = $1
	`

	userTicket := &domain.UserTicket{}
	err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&userTicket.TicketID,
		&userTicket.UserID,
		&userTicket.VehicleID,
		&userTicket.ValidFrom,
		&userTicket.ValidTo,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserTicketNotFound
		}
		return nil, mapError(err)
	}

	return userTicket, nil
}
