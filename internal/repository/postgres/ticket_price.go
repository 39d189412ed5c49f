package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

type priceRepository struct {
	db DBTX
}

func NewPriceRepository(db DBTX) repository.PriceRepository {
	return &priceRepository{db: db}
}

func (r *priceRepository) Get(ctx context.Context, ticketType domain.TicketType, vehicleType domain.VehicleType) (*domain.TicketPrice, error) {
	query := `
		SELECT type, vehicle_type, price
		FROM ticket_prices
		WHERE type = $1 AND vehicle_type = $2
	`

	price := &domain.TicketPrice{}
	err := r.db.QueryRow(ctx, query, ticketType, vehicleType).Scan(
		&price.TicketType,
		&price.VehicleType,
		&price.Price,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPriceNotConfigured
		}
		return nil, mapError(err)
	}

	return price, nil
}

func (r *priceRepository) List(ctx context.Context) ([]*domain.TicketPrice, error) {
	query := `
		SELECT type, vehicle_type, price
		FROM ticket_prices
		ORDER BY type, vehicle_type
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	prices := []*domain.TicketPrice{}
	for rows.Next() {
		price := &domain.TicketPrice{}
		if err := rows.Scan(&price.TicketType, &price.VehicleType, &price.Price); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}

	return prices, mapError(rows.Err())
}

func (r *priceRepository) Upsert(ctx context.Context, price *domain.TicketPrice) error {
	query := `
		INSERT INTO ticket_prices (type, vehicle_type, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (type, vehicle_type) DO UPDATE SET price = EXCLUDED.price
	`

	_, err := r.db.Exec(ctx, query, price.TicketType, price.VehicleType, price.Price)
	return mapError(err)
}
