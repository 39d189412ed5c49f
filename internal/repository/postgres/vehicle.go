package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) CreateIfNotExists(ctx context.Context, vehicle *domain.Vehicle) (bool, error) {
	// ON CONFLICT не прерывает транзакцию при гонке за один номер
	query := `
		INSERT INTO vehicles (plate, type)
		VALUES ($1, $2)
		ON CONFLICT (plate) DO NOTHING
		RETURNING id, created_at
	`

	// Нормализуем номер перед сохранением
	vehicle.LicensePlate = domain.NormalizeLicensePlate(vehicle.LicensePlate)

	err := r.db.QueryRow(ctx, query, vehicle.LicensePlate, vehicle.VehicleType).Scan(
		&vehicle.ID,
		&vehicle.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err)
	}

	return true, nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `
		SELECT id, plate, type, created_at
		FROM vehicles
		WHERE id = $1
	`

	return r.getOne(ctx, query, id)
}

func (r *vehicleRepository) GetByLicensePlate(ctx context.Context, licensePlate string) (*domain.Vehicle, error) {
	query := `
		SELECT id, plate, type, created_at
		FROM vehicles
		WHERE plate = $1
	`

	// Нормализуем номер перед поиском
	return r.getOne(ctx, query, domain.NormalizeLicensePlate(licensePlate))
}

func (r *vehicleRepository) getOne(ctx context.Context, query string, arg any) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&vehicle.ID,
		&vehicle.LicensePlate,
		&vehicle.VehicleType,
		&vehicle.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, mapError(err)
	}

	return vehicle, nil
}
