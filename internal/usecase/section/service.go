package section

import (
	"context"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/frontandrew/parking/internal/usecase/capacity"
)

// Период отчета по умолчанию
const defaultReportPeriod = 7 * 24 * time.Hour

// AvailabilityCache - кэш снимков доступности для отображения
type AvailabilityCache interface {
	Get(ctx context.Context, sectionID int64) (domain.Availability, bool)
	Set(ctx context.Context, availability domain.Availability)
	Invalidate(ctx context.Context, sectionID int64) error
}

// CreateSectionRequest - запрос на создание секции
type CreateSectionRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// UpdateSectionRequest - запрос на изменение секции (пустые поля не меняются)
type UpdateSectionRequest struct {
	Name     *string `json:"name,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
}

// Service содержит бизнес-логику работы с секциями
type Service struct {
	store        repository.Store
	availability AvailabilityCache
	location     *time.Location
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр SectionService
func NewService(store repository.Store, availability AvailabilityCache, location *time.Location, logger logger.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:        store,
		availability: availability,
		location:     location,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock подменяет источник времени
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create создает новую секцию
func (s *Service) Create(ctx context.Context, req *CreateSectionRequest) (*domain.Section, error) {
	section := &domain.Section{
		Name:     req.Name,
		Capacity: req.Capacity,
	}

	if err := section.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Repositories().Sections.Create(ctx, section); err != nil {
		s.logger.Error("Failed to create section", map[string]interface{}{
			"name":  section.Name,
			"error": err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Section created", map[string]interface{}{
		"section_id": section.ID,
		"name":       section.Name,
		"capacity":   section.Capacity,
	})

	return section, nil
}

// Update меняет имя или вместимость секции.
// Вместимость нельзя уменьшить ниже наибольшего закрепленного места.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateSectionRequest) (*domain.Section, error) {
	var updated *domain.Section

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		section, err := repos.Sections.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			section.Name = *req.Name
		}
		if req.Capacity != nil {
			section.Capacity = *req.Capacity
		}
		if err := section.Validate(); err != nil {
			return err
		}

		maxSlot, err := repos.Reservations.MaxSlot(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get max reserved slot: %w", err)
		}
		if section.Capacity < maxSlot {
			return domain.ErrInvalidSectionData
		}

		if err := repos.Sections.Update(ctx, section); err != nil {
			return err
		}
		updated = section
		return nil
	})
	if err != nil {
		s.logger.Warn("Section update rejected", map[string]interface{}{
			"section_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	if err := s.availability.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate availability cache", map[string]interface{}{
			"section_id": id,
			"error":      err.Error(),
		})
	}

	s.logger.Info("Section updated", map[string]interface{}{
		"section_id": updated.ID,
		"name":       updated.Name,
		"capacity":   updated.Capacity,
	})

	return updated, nil
}

// List возвращает секции, доступные вызывающему
func (s *Service) List(ctx context.Context, caller *domain.Caller) ([]*domain.Section, error) {
	sections := s.store.Repositories().Sections
	if caller.IsAdmin() {
		return sections.List(ctx)
	}
	if len(caller.AllowedSectionIDs) == 0 {
		return []*domain.Section{}, nil
	}
	return sections.ListByIDs(ctx, caller.AllowedSectionIDs)
}

// Get возвращает секцию
func (s *Service) Get(ctx context.Context, caller *domain.Caller, id int64) (*domain.Section, error) {
	if !caller.CanOperate(id) {
		return nil, domain.ErrForbidden
	}
	return s.store.Repositories().Sections.GetByID(ctx, id)
}

// Availability возвращает снимок свободных мест.
// Значение только для отображения и может отставать от транзакционного.
func (s *Service) Availability(ctx context.Context, caller *domain.Caller, id int64) (domain.Availability, error) {
	if !caller.CanOperate(id) {
		return domain.Availability{}, domain.ErrForbidden
	}

	if cached, ok := s.availability.Get(ctx, id); ok {
		return cached, nil
	}

	availability, err := capacity.AvailableSlots(ctx, s.store.Repositories(), id, s.now())
	if err != nil {
		return domain.Availability{}, err
	}

	s.availability.Set(ctx, availability)
	return availability, nil
}

// ReservedSlots возвращает закрепленные места секции
func (s *Service) ReservedSlots(ctx context.Context, caller *domain.Caller, id int64) ([]*domain.Reservation, error) {
	if !caller.CanOperate(id) {
		return nil, domain.ErrForbidden
	}

	repos := s.store.Repositories()
	if _, err := repos.Sections.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return repos.Reservations.ListBySection(ctx, id)
}

// Report возвращает выручку секции по сессиям с въездом в [from, to].
// По умолчанию - последние 7 дней.
func (s *Service) Report(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) (*domain.SectionReport, error) {
	if !caller.CanOperate(id) {
		return nil, domain.ErrForbidden
	}

	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	if _, err := repos.Sections.GetByID(ctx, id); err != nil {
		return nil, err
	}

	revenue, count, err := repos.Sessions.Revenue(ctx, id, from, to)
	if err != nil {
		s.logger.Error("Failed to build section report", map[string]interface{}{
			"section_id": id,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to build section report: %w", err)
	}

	return &domain.SectionReport{
		SectionID:    id,
		From:         from,
		To:           to,
		Revenue:      revenue,
		SessionCount: count,
	}, nil
}

func (s *Service) period(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultReportPeriod)
	}
	if from.After(to) {
		return from, to, domain.ErrInvalidDateRange
	}
	return from, to, nil
}
