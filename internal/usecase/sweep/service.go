package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/events"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/pkg/metrics"
	"github.com/frontandrew/parking/internal/repository"
)

// AvailabilityInvalidator сбрасывает закэшированную доступность всех секций
type AvailabilityInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Result - итог одного прохода очистки
type Result struct {
	Candidates int       `json:"candidates"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	RanAt      time.Time `json:"ran_at"`
}

// Service удаляет брони, у которых закончилось окно действия абонемента
type Service struct {
	store        repository.Store
	availability AvailabilityInvalidator
	publisher    events.Publisher
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр SweepService
func NewService(
	store repository.Store,
	availability AvailabilityInvalidator,
	publisher events.Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		store:        store,
		availability: availability,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock подменяет источник времени
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Select выбирает брони для удаления: validTo < now и нет открытой сессии
func Select(now time.Time, candidates []domain.ExpiryCandidate) []domain.Reservation {
	selected := []domain.Reservation{}
	for _, c := range candidates {
		if c.IsExpired(now) {
			selected = append(selected, c.Reservation)
		}
	}
	return selected
}

// Run выполняет один проход очистки.
// Ошибка удаления одной брони не останавливает проход, ошибки собираются вместе.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	now := s.now()
	repos := s.store.Repositories()

	s.logger.Info("Starting reservation sweep", map[string]interface{}{
		"now": now,
	})

	candidates, err := repos.Reservations.ListExpiryCandidates(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list expired reservations", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	selected := Select(now, candidates)
	deleted, err := s.delete(ctx, repos, selected, now)

	result := &Result{
		Candidates: len(candidates),
		Deleted:    len(deleted),
		Skipped:    len(candidates) - len(deleted),
		RanAt:      now,
	}

	metrics.AddSweepDeleted(result.Deleted)

	if result.Deleted > 0 {
		if cacheErr := s.availability.InvalidateAll(ctx); cacheErr != nil {
			s.logger.Warn("Failed to invalidate availability cache", map[string]interface{}{
				"error": cacheErr.Error(),
			})
		}
	}

	for _, r := range deleted {
		event := events.New(events.TypeReservationExpired, events.ReservationExpired{
			TicketID:  r.TicketID,
			SectionID: r.SectionID,
			Slot:      r.Slot,
		})
		if pubErr := s.publisher.Publish(ctx, event); pubErr != nil {
			s.logger.Error("Failed to publish event", map[string]interface{}{
				"type":  event.Type,
				"error": pubErr.Error(),
			})
		}
	}

	s.logger.Info("Reservation sweep finished", map[string]interface{}{
		"candidates": result.Candidates,
		"deleted":    result.Deleted,
		"skipped":    result.Skipped,
	})

	return result, err
}

// delete удаляет выбранные брони. Условие "истекла и нет открытой сессии"
// повторно проверяется в самом удалении, поэтому въезд между выборкой
// и удалением бронь сохраняет.
func (s *Service) delete(ctx context.Context, repos repository.Repositories, selected []domain.Reservation, now time.Time) ([]domain.Reservation, error) {
	deleted := []domain.Reservation{}
	var errs []error

	for _, r := range selected {
		ok, err := repos.Reservations.DeleteExpired(ctx, r.TicketID, now)
		if err != nil {
			s.logger.Error("Failed to delete expired reservation", map[string]interface{}{
				"ticket_id": r.TicketID,
				"error":     err.Error(),
			})
			errs = append(errs, fmt.Errorf("ticket %d: %w", r.TicketID, err))
			continue
		}
		if !ok {
			s.logger.Debug("Reservation kept by delete guard", map[string]interface{}{
				"ticket_id": r.TicketID,
			})
			continue
		}
		deleted = append(deleted, r)
	}

	return deleted, errors.Join(errs...)
}
