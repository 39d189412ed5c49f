package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

const (
	reservationsPkey           = "reservations_pkey"
	reservationsSectionSlotKey = "reservations_section_slot_key"
)

type reservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	query := `
		INSERT INTO reservations (ticket_id, section_id, slot)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, reservation.TicketID, reservation.SectionID, reservation.Slot)
	if err != nil {
		if isUniqueViolation(err, reservationsSectionSlotKey) {
			return domain.ErrSlotAlreadyReserved
		}
		if isUniqueViolation(err, reservationsPkey) {
			return domain.ErrAlreadyReserved
		}
		return mapError(err)
	}

	return nil
}

func (r *reservationRepository) GetByTicketID(ctx context.Context, ticketID int64) (*domain.Reservation, error) {
	query := `
		SELECT ticket_id, section_id, slot
		FROM reservations
		WHERE ticket_id = $1
	`

	reservation := &domain.Reservation{}
	err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&reservation.TicketID,
		&reservation.SectionID,
		&reservation.Slot,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}
		return nil, mapError(err)
	}

	return reservation, nil
}

func (r *reservationRepository) DeleteByTicketID(ctx context.Context, ticketID int64) error {
	query := `DELETE FROM reservations WHERE ticket_id = $1`

	_, err := r.db.Exec(ctx, query, ticketID)
	return mapError(err)
}

func (r *reservationRepository) ListBySection(ctx context.Context, sectionID int64) ([]*domain.Reservation, error) {
	query := `
		SELECT ticket_id, section_id, slot
		FROM reservations
		WHERE section_id = $1
		ORDER BY slot
	`

	rows, err := r.db.Query(ctx, query, sectionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := []*domain.Reservation{}
	for rows.Next() {
		reservation := &domain.Reservation{}
		if err := rows.Scan(&reservation.TicketID, &reservation.SectionID, &reservation.Slot); err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	return reservations, mapError(rows.Err())
}

func (r *reservationRepository) CountActive(ctx context.Context, sectionID int64, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations r
		JOIN user_tickets ut ON ut.ticket_id = r.ticket_id
		WHERE r.section_id = $1
		  AND ut.valid_to > $2
		  AND NOT EXISTS (
			SELECT 1 FROM sessions s
			WHERE s.ticket_id = r.ticket_id AND s.checked_out_at IS NULL
		  )
	`

	var count int
	if err := r.db.QueryRow(ctx, query, sectionID, now).Scan(&count); err != nil {
		return 0, mapError(err)
	}

	return count, nil
}

func (r *reservationRepository) MaxSlot(ctx context.Context, sectionID int64) (int, error) {
	query := `SELECT COALESCE(MAX(slot), 0) FROM reservations WHERE section_id = $1`

	var slot int
	if err := r.db.QueryRow(ctx, query, sectionID).Scan(&slot); err != nil {
		return 0, mapError(err)
	}

	return slot, nil
}

func (r *reservationRepository) ListExpiryCandidates(ctx context.Context, now time.Time) ([]domain.ExpiryCandidate, error) {
	query := `
		SELECT r.ticket_id, r.section_id, r.slot, ut.valid_to,
			EXISTS (
				SELECT 1 FROM sessions s
				WHERE s.ticket_id = r.ticket_id AND s.checked_out_at IS NULL
			)
		FROM reservations r
		JOIN user_tickets ut ON ut.ticket_id = r.ticket_id
		WHERE ut.valid_to < $1
		ORDER BY ut.valid_to
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	candidates := []domain.ExpiryCandidate{}
	for rows.Next() {
		var c domain.ExpiryCandidate
		if err := rows.Scan(&c.TicketID, &c.SectionID, &c.Slot, &c.ValidTo, &c.HasOpenSession); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, mapError(rows.Err())
}

func (r *reservationRepository) DeleteExpired(ctx context.Context, ticketID int64, now time.Time) (bool, error) {
	// Повторяем условие отбора: между выборкой и удалением мог произойти въезд
	query := `
		DELETE FROM reservations r
		USING user_tickets ut
		WHERE r.ticket_id = $1
		  AND ut.ticket_id = r.ticket_id
		  AND ut.valid_to < $2
		  AND NOT EXISTS (
			SELECT 1 FROM sessions s
			WHERE s.ticket_id = r.ticket_id AND s.checked_out_at IS NULL
		  )
	`

	result, err := r.db.Exec(ctx, query, ticketID, now)
	if err != nil {
		return false, mapError(err)
	}

	return result.RowsAffected() > 0, nil
}
