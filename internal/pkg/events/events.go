package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Типы событий (используются как routing key)
const (
	TypeSessionCheckedIn   = "session.checked_in"
	TypeSessionCheckedOut  = "session.checked_out"
	TypeReservationExpired = "reservation.expired"
)

// Event - доменное событие, публикуемое после фиксации транзакции
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// SessionCheckedIn - транспортное средство въехало в секцию
type SessionCheckedIn struct {
	SessionID   uuid.UUID `json:"session_id"`
	SectionID   int64     `json:"section_id"`
	TicketID    int64     `json:"ticket_id"`
	Plate       string    `json:"plate"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// SessionCheckedOut - транспортное средство выехало, стоимость рассчитана
type SessionCheckedOut struct {
	SessionID    uuid.UUID       `json:"session_id"`
	SectionID    int64           `json:"section_id"`
	TicketID     int64           `json:"ticket_id"`
	Plate        string          `json:"plate"`
	CheckedOutAt time.Time       `json:"checked_out_at"`
	Fee          decimal.Decimal `json:"fee"`
}

// ReservationExpired - закрепленное место освобождено очисткой
type ReservationExpired struct {
	TicketID  int64 `json:"ticket_id"`
	SectionID int64 `json:"section_id"`
	Slot      int   `json:"slot"`
}

// Publisher публикует доменные события
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New создает событие с текущим временем
func New(eventType string, payload interface{}) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// NoopPublisher отбрасывает события (брокер не настроен)
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
