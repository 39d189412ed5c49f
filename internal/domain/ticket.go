package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketType представляет класс билета
type TicketType string

const (
	TicketTypeDaily    TicketType = "DAILY"    // Разовый билет, оплата по времени
	TicketTypeMonthly  TicketType = "MONTHLY"  // Абонемент
	TicketTypeReserved TicketType = "RESERVED" // Абонемент с закрепленным местом
)

// IsValid проверяет, что класс билета известен
func (t TicketType) IsValid() bool {
	return t == TicketTypeDaily || t == TicketTypeMonthly || t == TicketTypeReserved
}

// RequiresHolder - билеты с владельцем и окном действия
func (t TicketType) RequiresHolder() bool {
	return t == TicketTypeMonthly || t == TicketTypeReserved
}

// TicketStatus представляет состояние билета
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "AVAILABLE"
	TicketStatusInUse     TicketStatus = "INUSE"
	TicketStatusLost      TicketStatus = "LOST"
	TicketStatusCanceled  TicketStatus = "CANCELED"
)

// TicketEvent - событие, переводящее билет в другое состояние
type TicketEvent string

const (
	TicketEventCheckIn  TicketEvent = "check_in"
	TicketEventCheckOut TicketEvent = "check_out"
	TicketEventMarkLost TicketEvent = "mark_lost"
	TicketEventCancel   TicketEvent = "cancel"
)

// Ticket - билет на парковку
type Ticket struct {
	ID     int64        `json:"id"`
	Type   TicketType   `json:"type"`
	Status TicketStatus `json:"status"`

	// Связанные данные (не хранятся в таблице tickets)
	Holder      *UserTicket  `json:"holder,omitempty"`
	Reservation *Reservation `json:"reservation,omitempty"`
}

// NextStatus возвращает состояние после события, не изменяя билет.
// Недопустимый переход возвращает ошибку.
func (t *Ticket) NextStatus(event TicketEvent) (TicketStatus, error) {
	switch event {
	case TicketEventCheckIn:
		if t.Status != TicketStatusAvailable {
			return t.Status, ErrTicketNotAvailable
		}
		return TicketStatusInUse, nil

	case TicketEventCheckOut:
		if t.Status != TicketStatusInUse {
			return t.Status, ErrTicketNotInUse
		}
		return TicketStatusAvailable, nil

	case TicketEventMarkLost:
		// потерянным билет можно объявить из любого состояния, повторная потеря ничего не меняет
		return TicketStatusLost, nil

	case TicketEventCancel:
		switch t.Status {
		case TicketStatusAvailable, TicketStatusLost:
			return TicketStatusCanceled, nil
		case TicketStatusInUse:
			return t.Status, ErrTicketInUse
		default:
			return t.Status, ErrInvalidTicketState
		}
	}

	return t.Status, ErrInvalidTicketState
}

// Apply применяет событие к билету
func (t *Ticket) Apply(event TicketEvent) error {
	next, err := t.NextStatus(event)
	if err != nil {
		return err
	}
	t.Status = next
	return nil
}

// UserTicket - привязка абонемента к владельцу и транспортному средству
type UserTicket struct {
	UserID    uuid.UUID `json:"user_id"`
	TicketID  int64     `json:"ticket_id"`
	VehicleID int64     `json:"vehicle_id"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

// IsValidAt проверяет, что момент попадает в окно действия (границы включены)
func (ut *UserTicket) IsValidAt(now time.Time) bool {
	return !now.Before(ut.ValidFrom) && !now.After(ut.ValidTo)
}

// Validate проверяет корректность окна действия
func (ut *UserTicket) Validate() error {
	if ut.UserID == uuid.Nil || ut.VehicleID == 0 {
		return ErrInvalidTicketData
	}
	if !ut.ValidTo.After(ut.ValidFrom) {
		return ErrInvalidDateRange
	}
	return nil
}
