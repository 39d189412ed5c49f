package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type sessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, vehicle_id, section_id, ticket_id, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	// Уникальный частичный индекс sessions_open_ticket_key: вторая открытая сессия -> ErrConflict
	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.VehicleID,
		session.SectionID,
		session.TicketID,
		session.CheckedInAt,
	)

	return mapError(err)
}

func (r *sessionRepository) GetOpenByTicketID(ctx context.Context, ticketID int64) (*domain.Session, error) {
	query := `
		SELECT s.id, s.vehicle_id, s.section_id, s.ticket_id, s.checked_in_at, s.checked_out_at, s.fee, v.plate
		FROM sessions s
		JOIN vehicles v ON v.id = s.vehicle_id
		WHERE s.ticket_id = $1 AND s.checked_out_at IS NULL
	`

	session, err := scanSession(r.db.QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, mapError(err)
	}

	return session, nil
}

func (r *sessionRepository) Close(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions
		SET checked_out_at = $2, fee = $3
		WHERE id = $1 AND checked_out_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, session.ID, session.CheckedOutAt, session.Fee)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) CountOpen(ctx context.Context, sectionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE section_id = $1 AND checked_out_at IS NULL`

	var count int
	if err := r.db.QueryRow(ctx, query, sectionID).Scan(&count); err != nil {
		return 0, mapError(err)
	}

	return count, nil
}

func (r *sessionRepository) ListBySection(ctx context.Context, sectionID int64, from, to time.Time) ([]*domain.Session, error) {
	query := `
		SELECT s.id, s.vehicle_id, s.section_id, s.ticket_id, s.checked_in_at, s.checked_out_at, s.fee, v.plate
		FROM sessions s
		JOIN vehicles v ON v.id = s.vehicle_id
		WHERE s.section_id = $1 AND s.checked_in_at BETWEEN $2 AND $3
		ORDER BY s.checked_in_at
	`

	rows, err := r.db.Query(ctx, query, sectionID, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, mapError(rows.Err())
}

func (r *sessionRepository) Revenue(ctx context.Context, sectionID int64, from, to time.Time) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(SUM(fee), 0), COUNT(*)
		FROM sessions
		WHERE section_id = $1 AND checked_in_at BETWEEN $2 AND $3
	`

	var (
		revenue decimal.Decimal
		count   int
	)
	if err := r.db.QueryRow(ctx, query, sectionID, from, to).Scan(&revenue, &count); err != nil {
		return decimal.Zero, 0, mapError(err)
	}

	return revenue, count, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	session := &domain.Session{}
	err := row.Scan(
		&session.ID,
		&session.VehicleID,
		&session.SectionID,
		&session.TicketID,
		&session.CheckedInAt,
		&session.CheckedOutAt,
		&session.Fee,
		&session.LicensePlate,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}
