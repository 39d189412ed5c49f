package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
)

// Service находит транспортное средство по номеру или регистрирует новое
type Service struct {
	store  repository.Store
	logger logger.Logger
}

// NewService создает новый экземпляр VehicleService
func NewService(store repository.Store, logger logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Resolve возвращает транспортное средство по номеру, создавая его при первом въезде
func (s *Service) Resolve(ctx context.Context, plate string, vehicleType domain.VehicleType) (*domain.Vehicle, error) {
	return s.ResolveWith(ctx, s.store.Repositories().Vehicles, plate, vehicleType)
}

// ResolveWith - то же, что Resolve, но через переданный репозиторий (например, внутри транзакции).
// При одновременной регистрации одного номера проигравший перечитывает запись победителя.
func (s *Service) ResolveWith(
	ctx context.Context,
	vehicles repository.VehicleRepository,
	plate string,
	vehicleType domain.VehicleType,
) (*domain.Vehicle, error) {
	candidate := &domain.Vehicle{
		LicensePlate: plate,
		VehicleType:  vehicleType,
	}

	// Валидируем и нормализуем номер
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	existing, err := vehicles.GetByLicensePlate(ctx, candidate.LicensePlate)
	if err == nil {
		if existing.VehicleType != vehicleType {
			s.logger.Warn("Vehicle type differs from registered one", map[string]interface{}{
				"plate":      existing.LicensePlate,
				"registered": existing.VehicleType,
				"requested":  vehicleType,
			})
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrVehicleNotFound) {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}

	created, err := vehicles.CreateIfNotExists(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	if created {
		s.logger.Info("Vehicle registered", map[string]interface{}{
			"vehicle_id": candidate.ID,
			"plate":      candidate.LicensePlate,
			"type":       candidate.VehicleType,
		})
		return candidate, nil
	}

	// Номер успели зарегистрировать параллельно
	winner, err := vehicles.GetByLicensePlate(ctx, candidate.LicensePlate)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read vehicle: %w", err)
	}
	return winner, nil
}

// GetVehicleByLicensePlate возвращает транспортное средство по номеру
func (s *Service) GetVehicleByLicensePlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	return s.store.Repositories().Vehicles.GetByLicensePlate(ctx, plate)
}
