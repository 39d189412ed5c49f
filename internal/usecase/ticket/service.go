package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/frontandrew/parking/internal/usecase/capacity"
	"github.com/frontandrew/parking/internal/usecase/fee"
	"github.com/frontandrew/parking/internal/usecase/vehicle"
)

// AvailabilityInvalidator сбрасывает закэшированную доступность секции
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, sectionID int64) error
}

// Service содержит бизнес-логику работы с билетами и тарифами
type Service struct {
	store        repository.Store
	prices       repository.PriceRepository
	vehicles     *vehicle.Service
	fees         *fee.Calculator
	availability AvailabilityInvalidator
	logger       logger.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр TicketService
func NewService(
	store repository.Store,
	prices repository.PriceRepository,
	vehicles *vehicle.Service,
	fees *fee.Calculator,
	availability AvailabilityInvalidator,
	logger logger.Logger,
) *Service {
	return &Service{
		store:        store,
		prices:       prices,
		vehicles:     vehicles,
		fees:         fees,
		availability: availability,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock подменяет источник времени
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue выпускает билеты. Все записи одного запроса создаются в одной транзакции.
func (s *Service) Issue(ctx context.Context, req IssueRequest) ([]*domain.Ticket, error) {
	if req == nil {
		return nil, domain.ErrInvalidTicketData
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("Issuing tickets", map[string]interface{}{
		"request": fmt.Sprintf("%T", req),
	})

	now := s.now()
	var issued []*domain.Ticket

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		switch r := req.(type) {
		case DailyBatch:
			issued, err = issueDaily(ctx, repos, r.Amount)
		case MonthlySubscription:
			var t *domain.Ticket
			t, err = s.issueSubscription(ctx, repos, domain.TicketTypeMonthly, r, now)
			issued = []*domain.Ticket{t}
		case ReservedSlot:
			var t *domain.Ticket
			t, err = s.issueSubscription(ctx, repos, domain.TicketTypeReserved, r.MonthlySubscription, now)
			if err == nil {
				t.Reservation = &domain.Reservation{TicketID: t.ID, SectionID: r.SectionID, Slot: r.Slot}
				err = reserve(ctx, repos, t.Reservation, now)
			}
			issued = []*domain.Ticket{t}
		default:
			err = domain.ErrInvalidTicketType
		}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to issue tickets", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	if r, ok := req.(ReservedSlot); ok {
		s.invalidate(ctx, r.SectionID)
	}

	s.logger.Info("Tickets issued", map[string]interface{}{
		"count": len(issued),
	})

	return issued, nil
}

func issueDaily(ctx context.Context, repos repository.Repositories, amount int) ([]*domain.Ticket, error) {
	tickets := make([]*domain.Ticket, 0, amount)
	for i := 0; i < amount; i++ {
		t := &domain.Ticket{Type: domain.TicketTypeDaily, Status: domain.TicketStatusAvailable}
		if err := repos.Tickets.Create(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *Service) issueSubscription(
	ctx context.Context,
	repos repository.Repositories,
	ticketType domain.TicketType,
	req MonthlySubscription,
	now time.Time,
) (*domain.Ticket, error) {
	v, err := s.vehicles.ResolveWith(ctx, repos.Vehicles, req.Plate, req.VehicleType)
	if err != nil {
		return nil, err
	}
	if ticketType == domain.TicketTypeReserved && v.VehicleType != domain.VehicleTypeCar {
		return nil, domain.ErrInvalidVehicleType
	}

	t := &domain.Ticket{Type: ticketType, Status: domain.TicketStatusAvailable}
	if err := repos.Tickets.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	validFrom, validTo := req.window(now)
	holder := &domain.UserTicket{
		UserID:    req.UserID,
		TicketID:  t.ID,
		VehicleID: v.ID,
		ValidFrom: validFrom,
		ValidTo:   validTo,
	}
	if err := holder.Validate(); err != nil {
		return nil, err
	}
	if err := repos.UserTickets.Create(ctx, holder); err != nil {
		return nil, fmt.Errorf("failed to create ticket holder: %w", err)
	}

	t.Holder = holder
	return t, nil
}

// reserve закрепляет место под блокировкой секции, как и въезд:
// номер в пределах вместимости и в секции есть свободное место
func reserve(ctx context.Context, repos repository.Repositories, reservation *domain.Reservation, now time.Time) error {
	section, availability, err := capacity.Lock(ctx, repos, reservation.SectionID, now)
	if err != nil {
		return err
	}
	if err := reservation.ValidateSlot(section.Capacity); err != nil {
		return err
	}
	if availability.IsFull() {
		return domain.ErrSectionFull
	}
	return repos.Reservations.Create(ctx, reservation)
}

// Reserve закрепляет место в секции за билетом RESERVED
func (s *Service) Reserve(ctx context.Context, caller *domain.Caller, ticketID, sectionID int64, slot int) (*domain.Reservation, error) {
	s.logger.Info("Reserving slot", map[string]interface{}{
		"ticket_id":  ticketID,
		"section_id": sectionID,
		"slot":       slot,
	})

	now := s.now()
	reservation := &domain.Reservation{TicketID: ticketID, SectionID: sectionID, Slot: slot}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.Type != domain.TicketTypeReserved {
			return domain.ErrNotReservedTicket
		}
		if t.Status != domain.TicketStatusAvailable && t.Status != domain.TicketStatusInUse {
			return domain.ErrInvalidTicketState
		}

		holder, err := repos.UserTickets.GetByTicketID(ctx, ticketID)
		if err != nil {
			return err
		}
		if !caller.CanManageTicket(holder) {
			return domain.ErrForbidden
		}
		if holder.ValidTo.Before(now) {
			return domain.ErrTicketExpired
		}

		v, err := repos.Vehicles.GetByID(ctx, holder.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to get ticket vehicle: %w", err)
		}
		if v.VehicleType != domain.VehicleTypeCar {
			return domain.ErrInvalidVehicleType
		}

		return reserve(ctx, repos, reservation, now)
	})
	if err != nil {
		s.logger.Warn("Reservation rejected", map[string]interface{}{
			"ticket_id":  ticketID,
			"section_id": sectionID,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.invalidate(ctx, sectionID)

	s.logger.Info("Slot reserved", map[string]interface{}{
		"ticket_id":  ticketID,
		"section_id": sectionID,
		"slot":       slot,
	})

	return reservation, nil
}

// Cancel отменяет абонемент и освобождает закрепленное место
func (s *Service) Cancel(ctx context.Context, caller *domain.Caller, ticketID int64) (*domain.Ticket, error) {
	var canceled *domain.Ticket
	var freed *domain.Reservation

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}

		holder, err := holderOf(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if !caller.CanManageTicket(holder) {
			return domain.ErrForbidden
		}

		if err := t.Apply(domain.TicketEventCancel); err != nil {
			return err
		}
		if err := repos.Tickets.UpdateStatus(ctx, t.ID, t.Status); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}

		freed, err = repos.Reservations.GetByTicketID(ctx, ticketID)
		if err != nil && !errors.Is(err, domain.ErrReservationNotFound) {
			return err
		}
		if freed != nil {
			if err := repos.Reservations.DeleteByTicketID(ctx, ticketID); err != nil {
				return fmt.Errorf("failed to delete reservation: %w", err)
			}
		}

		t.Holder = holder
		canceled = t
		return nil
	})
	if err != nil {
		s.logger.Warn("Cancel rejected", map[string]interface{}{
			"ticket_id": ticketID,
			"error":     err.Error(),
		})
		return nil, err
	}

	if freed != nil {
		s.invalidate(ctx, freed.SectionID)
	}

	s.logger.Info("Ticket canceled", map[string]interface{}{
		"ticket_id": ticketID,
	})

	return canceled, nil
}

// MarkLost помечает билет потерянным. Открытая сессия билета закрывается
// с расчетом стоимости на текущий момент.
func (s *Service) MarkLost(ctx context.Context, ticketID int64) (*domain.Session, error) {
	now := s.now()
	var closed *domain.Session

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		t, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		wasInUse := t.Status == domain.TicketStatusInUse

		if err := t.Apply(domain.TicketEventMarkLost); err != nil {
			return err
		}
		if err := repos.Tickets.UpdateStatus(ctx, t.ID, t.Status); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}

		if !wasInUse {
			return nil
		}

		open, err := repos.Sessions.GetOpenByTicketID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			return err
		}
		v, err := repos.Vehicles.GetByID(ctx, open.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to get session vehicle: %w", err)
		}
		holder, err := holderOf(ctx, repos, ticketID)
		if err != nil {
			return err
		}

		amount, err := s.fees.CheckoutFee(ctx, t, holder, v.VehicleType, open.CheckedInAt, now)
		if err != nil {
			return err
		}
		open.Close(now, amount)
		if err := repos.Sessions.Close(ctx, open); err != nil {
			return fmt.Errorf("failed to close session: %w", err)
		}
		closed = open
		return nil
	})
	if err != nil {
		s.logger.Warn("Mark lost rejected", map[string]interface{}{
			"ticket_id": ticketID,
			"error":     err.Error(),
		})
		return nil, err
	}

	fields := map[string]interface{}{"ticket_id": ticketID}
	if closed != nil {
		s.invalidate(ctx, closed.SectionID)
		fields["session_id"] = closed.ID
		fields["fee"] = closed.Fee.Decimal.String()
	}
	s.logger.Info("Ticket marked lost", fields)

	return closed, nil
}

// Get возвращает билет с владельцем и бронью.
// Администратор и охрана видят любой билет, пользователь - только свой.
func (s *Service) Get(ctx context.Context, caller *domain.Caller, ticketID int64) (*domain.Ticket, error) {
	repos := s.store.Repositories()

	t, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	holder, err := holderOf(ctx, repos, ticketID)
	if err != nil {
		return nil, err
	}
	if !caller.CanViewTicket(holder) {
		return nil, domain.ErrForbidden
	}

	reservation, err := repos.Reservations.GetByTicketID(ctx, ticketID)
	if err != nil && !errors.Is(err, domain.ErrReservationNotFound) {
		return nil, err
	}

	t.Holder = holder
	t.Reservation = reservation
	return t, nil
}

// holderOf возвращает владельца билета или nil для анонимного билета
func holderOf(ctx context.Context, repos repository.Repositories, ticketID int64) (*domain.UserTicket, error) {
	holder, err := repos.UserTickets.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrUserTicketNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return holder, nil
}

func (s *Service) invalidate(ctx context.Context, sectionID int64) {
	if err := s.availability.Invalidate(ctx, sectionID); err != nil {
		s.logger.Warn("Failed to invalidate availability cache", map[string]interface{}{
			"section_id": sectionID,
			"error":      err.Error(),
		})
	}
}
