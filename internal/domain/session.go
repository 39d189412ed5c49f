package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session - запись о нахождении транспортного средства в секции
type Session struct {
	ID           uuid.UUID           `json:"id"`
	VehicleID    int64               `json:"vehicle_id"`
	SectionID    int64               `json:"section_id"`
	TicketID     int64               `json:"ticket_id"`
	CheckedInAt  time.Time           `json:"checked_in_at"`
	CheckedOutAt *time.Time          `json:"checked_out_at,omitempty"` // NULL пока сессия открыта
	Fee          decimal.NullDecimal `json:"fee"`                      // NULL до выезда

	// Связанные данные (заполняются при необходимости)
	LicensePlate string `json:"plate,omitempty"`
}

// IsOpen - транспортное средство еще не выехало
func (s *Session) IsOpen() bool {
	return s.CheckedOutAt == nil
}

// Close закрывает сессию с рассчитанной стоимостью
func (s *Session) Close(at time.Time, fee decimal.Decimal) {
	s.CheckedOutAt = &at
	s.Fee = decimal.NewNullDecimal(fee)
}

// SectionReport - выручка секции за период
type SectionReport struct {
	SectionID    int64           `json:"section_id"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Revenue      decimal.Decimal `json:"revenue"`
	SessionCount int             `json:"session_count"`
}
