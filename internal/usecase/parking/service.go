package parking

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
	"github.com/frontandrew/parking/internal/usecase/capacity"
	"github.com/frontandrew/parking/internal/usecase/fee"
	"github.com/frontandrew/parking/internal/usecase/vehicle"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckInRequest - запрос на въезд
type CheckInRequest struct {
	SectionID   int64              `json:"section_id"`
	TicketID    int64              `json:"ticket_id"`
	Plate       string             `json:"plate"`
	VehicleType domain.VehicleType `json:"vehicle_class"`
}

// CheckInResponse - результат въезда
type CheckInResponse struct {
	SessionID   uuid.UUID `json:"session_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// CheckOutRequest - запрос на выезд
type CheckOutRequest struct {
	SectionID int64  `json:"section_id"`
	TicketID  int64  `json:"ticket_id"`
	Plate     string `json:"plate"`
}

// CheckOutResponse - результат выезда
type CheckOutResponse struct {
	SessionID    uuid.UUID       `json:"session_id"`
	Fee          decimal.Decimal `json:"fee"`
	CheckedOutAt time.Time       `json:"checked_out_at"`
}

// AvailabilityInvalidator сбрасывает закэшированную доступность секции
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, sectionID int64) error
}

// Service - транзакционная точка входа для въезда и выезда
type Service struct {
	store        repository.Store
	vehicles     *vehicle.Service
	fees         *fee.Calculator
	availability AvailabilityInvalidator
	publisher    events.Publisher
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр ParkingService
func NewService(
	store repository.Store,
	vehicles *vehicle.Service,
	fees *fee.Calculator,
	availability AvailabilityInvalidator,
	publisher events.Publisher,
	logger logger.Logger,
) *Service {
	return &Service{
		store:        store,
		vehicles:     vehicles,
		fees:         fees,
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

// CheckIn - въезд транспортного средства в секцию по билету.
// Шаги 2-6 выполняются в одной транзакции, любая ошибка откатывает все изменения.
func (s *Service) CheckIn(ctx context.Context, caller *domain.Caller, req *CheckInRequest) (resp *CheckInResponse, err error) {
	defer func() { metrics.ObserveCheckIn(err) }()

	s.logger.Info("Starting check-in", map[string]interface{}{
		"section_id": req.SectionID,
		"ticket_id":  req.TicketID,
		"plate":      req.Plate,
	})

	// ШАГ 1: Проверяем права на секцию
	if !caller.CanOperate(req.SectionID) {
		s.logger.Warn("Check-in forbidden", map[string]interface{}{
			"section_id": req.SectionID,
		})
		return nil, domain.ErrForbidden
	}

	now := s.now()
	var session *domain.Session

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// ШАГ 2: Загружаем билет под блокировкой и проверяем переход
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, req.TicketID)
		if err != nil {
			return err
		}
		next, err := ticket.NextStatus(domain.TicketEventCheckIn)
		if err != nil {
			return err
		}

		// ШАГ 3: Находим или регистрируем транспортное средство
		v, err := s.vehicles.ResolveWith(ctx, repos.Vehicles, req.Plate, req.VehicleType)
		if err != nil {
			return err
		}

		// ШАГ 4: Условия класса билета
		if err := checkHolder(ctx, repos, ticket, v, now); err != nil {
			return err
		}

		// ШАГ 5: Вместимость. RESERVED занимает свое закрепленное место
		if ticket.Type == domain.TicketTypeReserved {
			if err := checkReservation(ctx, repos, ticket.ID, req.SectionID); err != nil {
				return err
			}
			if _, err := repos.Sections.GetByIDForUpdate(ctx, req.SectionID); err != nil {
				return err
			}
		} else {
			_, availability, err := capacity.Lock(ctx, repos, req.SectionID, now)
			if err != nil {
				return err
			}
			if availability.IsFull() {
				return domain.ErrSectionFull
			}
		}

		// ШАГ 6: Открываем сессию и переводим билет в INUSE
		session = &domain.Session{
			VehicleID:    v.ID,
			SectionID:    req.SectionID,
			TicketID:     ticket.ID,
			CheckedInAt:  now,
			LicensePlate: v.LicensePlate,
		}
		if err := repos.Sessions.Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, next); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Check-in rejected", err, map[string]interface{}{
			"section_id": req.SectionID,
			"ticket_id":  req.TicketID,
		})
		return nil, err
	}

	s.logger.Info("Vehicle checked in", map[string]interface{}{
		"session_id": session.ID,
		"section_id": session.SectionID,
		"ticket_id":  session.TicketID,
		"plate":      session.LicensePlate,
	})

	s.afterCommit(ctx, session.SectionID, events.New(events.TypeSessionCheckedIn, events.SessionCheckedIn{
		SessionID:   session.ID,
		SectionID:   session.SectionID,
		TicketID:    session.TicketID,
		Plate:       session.LicensePlate,
		CheckedInAt: session.CheckedInAt,
	}))

	return &CheckInResponse{
		SessionID:   session.ID,
		CheckedInAt: session.CheckedInAt,
	}, nil
}

// CheckOut - выезд с расчетом стоимости.
// Повторный выезд по закрытой сессии отклоняется с ErrTicketNotInUse.
func (s *Service) CheckOut(ctx context.Context, caller *domain.Caller, req *CheckOutRequest) (resp *CheckOutResponse, err error) {
	var ticketType domain.TicketType
	var session *domain.Session
	defer func() {
		charged := decimal.Zero
		if session != nil {
			charged = session.Fee.Decimal
		}
		metrics.ObserveCheckOut(ticketType, charged, err)
	}()

	s.logger.Info("Starting check-out", map[string]interface{}{
		"section_id": req.SectionID,
		"ticket_id":  req.TicketID,
		"plate":      req.Plate,
	})

	// ШАГ 1: Проверяем права на секцию
	if !caller.CanOperate(req.SectionID) {
		s.logger.Warn("Check-out forbidden", map[string]interface{}{
			"section_id": req.SectionID,
		})
		return nil, domain.ErrForbidden
	}

	now := s.now()

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// ШАГ 2: Билет должен быть в INUSE
		ticket, err := repos.Tickets.GetByIDForUpdate(ctx, req.TicketID)
		if err != nil {
			return err
		}
		next, err := ticket.NextStatus(domain.TicketEventCheckOut)
		if err != nil {
			return err
		}

		// ШАГ 3: Открытая сессия билета в этой секции и совпадение номера
		open, err := repos.Sessions.GetOpenByTicketID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if open.SectionID != req.SectionID {
			return domain.ErrSessionNotFound
		}
		v, err := repos.Vehicles.GetByID(ctx, open.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to get session vehicle: %w", err)
		}
		if domain.NormalizeLicensePlate(req.Plate) != v.LicensePlate {
			return domain.ErrPlateMismatch
		}

		// ШАГ 4: Стоимость по классу билета
		var holder *domain.UserTicket
		if ticket.Type.RequiresHolder() {
			holder, err = repos.UserTickets.GetByTicketID(ctx, ticket.ID)
			if err != nil && !errors.Is(err, domain.ErrUserTicketNotFound) {
				return err
			}
		}
		amount, err := s.fees.CheckoutFee(ctx, ticket, holder, v.VehicleType, open.CheckedInAt, now)
		if err != nil {
			return err
		}

		// ШАГ 5: Закрываем сессию и возвращаем билет в AVAILABLE
		open.Close(now, amount)
		open.LicensePlate = v.LicensePlate
		if err := repos.Sessions.Close(ctx, open); err != nil {
			return fmt.Errorf("failed to close session: %w", err)
		}
		if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, next); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}

		ticketType = ticket.Type
		session = open
		return nil
	})
	if err != nil {
		session = nil
		s.logFailure("Check-out rejected", err, map[string]interface{}{
			"section_id": req.SectionID,
			"ticket_id":  req.TicketID,
		})
		return nil, err
	}

	s.logger.Info("Vehicle checked out", map[string]interface{}{
		"session_id": session.ID,
		"section_id": session.SectionID,
		"ticket_id":  session.TicketID,
		"fee":        session.Fee.Decimal.String(),
	})

	s.afterCommit(ctx, session.SectionID, events.New(events.TypeSessionCheckedOut, events.SessionCheckedOut{
		SessionID:    session.ID,
		SectionID:    session.SectionID,
		TicketID:     session.TicketID,
		Plate:        session.LicensePlate,
		CheckedOutAt: *session.CheckedOutAt,
		Fee:          session.Fee.Decimal,
	}))

	return &CheckOutResponse{
		SessionID:    session.ID,
		Fee:          session.Fee.Decimal,
		CheckedOutAt: *session.CheckedOutAt,
	}, nil
}

// checkHolder проверяет владельца абонемента: окно действия, для RESERVED еще и номер
func checkHolder(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, v *domain.Vehicle, now time.Time) error {
	if !ticket.Type.RequiresHolder() {
		return nil
	}

	holder, err := repos.UserTickets.GetByTicketID(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserTicketNotFound) {
			return domain.ErrTicketExpired
		}
		return err
	}

	if !holder.IsValidAt(now) {
		return domain.ErrTicketExpired
	}

	if ticket.Type == domain.TicketTypeReserved && holder.VehicleID != v.ID {
		return domain.ErrPlateMismatch
	}

	return nil
}

// checkReservation проверяет, что место закреплено в той же секции
func checkReservation(ctx context.Context, repos repository.Repositories, ticketID, sectionID int64) error {
	reservation, err := repos.Reservations.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if reservation.SectionID != sectionID {
		return domain.ErrReservationNotFound
	}
	return nil
}

// afterCommit выполняет побочные эффекты, которые не должны откатывать операцию
func (s *Service) afterCommit(ctx context.Context, sectionID int64, event events.Event) {
	if err := s.availability.Invalidate(ctx, sectionID); err != nil {
		s.logger.Warn("Failed to invalidate availability cache", map[string]interface{}{
			"section_id": sectionID,
			"error":      err.Error(),
		})
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

// logFailure пишет отказ бизнес-правил как warning, а сбой хранилища как error
func (s *Service) logFailure(msg string, err error, fields map[string]interface{}) {
	fields["error"] = err.Error()
	if isRejection(err) {
		s.logger.Warn(msg, fields)
		return
	}
	s.logger.Error(msg, fields)
}

func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrTicketNotFound,
		domain.ErrTicketNotAvailable,
		domain.ErrTicketNotInUse,
		domain.ErrTicketExpired,
		domain.ErrPlateMismatch,
		domain.ErrSectionFull,
		domain.ErrSectionNotFound,
		domain.ErrSessionNotFound,
		domain.ErrReservationNotFound,
		domain.ErrInvalidLicensePlate,
		domain.ErrInvalidVehicleType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
