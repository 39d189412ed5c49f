// Package capacity считает свободные места секции.
//
// available = capacity - activeReserved - occupied, где occupied - открытые сессии секции,
// activeReserved - действующие брони без открытой сессии (такая бронь уже учтена в occupied).
package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
)

// Lock блокирует строку секции и считает свободные места.
// Вызывается внутри транзакции, которая затем занимает место: пока блокировка
// держится, конкурирующий въезд в ту же секцию ждет.
func Lock(ctx context.Context, repos repository.Repositories, sectionID int64, now time.Time) (*domain.Section, domain.Availability, error) {
	section, err := repos.Sections.GetByIDForUpdate(ctx, sectionID)
	if err != nil {
		return nil, domain.Availability{}, err
	}

	availability, err := Count(ctx, repos, section, now)
	if err != nil {
		return nil, domain.Availability{}, err
	}
	return section, availability, nil
}

// AvailableSlots считает свободные места без блокировки (для отображения)
func AvailableSlots(ctx context.Context, repos repository.Repositories, sectionID int64, now time.Time) (domain.Availability, error) {
	section, err := repos.Sections.GetByID(ctx, sectionID)
	if err != nil {
		return domain.Availability{}, err
	}
	return Count(ctx, repos, section, now)
}

// Count считает занятость уже загруженной секции
func Count(ctx context.Context, repos repository.Repositories, section *domain.Section, now time.Time) (domain.Availability, error) {
	occupied, err := repos.Sessions.CountOpen(ctx, section.ID)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("failed to count open sessions: %w", err)
	}

	reserved, err := repos.Reservations.CountActive(ctx, section.ID, now)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("failed to count active reservations: %w", err)
	}

	return domain.NewAvailability(section.ID, section.Capacity, occupied, reserved), nil
}
