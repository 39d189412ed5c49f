package domain

import "time"

// Reservation - закрепленное место для билета RESERVED
type Reservation struct {
	TicketID  int64 `json:"ticket_id"`
	SectionID int64 `json:"section_id"`
	Slot      int   `json:"slot"`
}

// ValidateSlot проверяет, что номер места в пределах вместимости секции
func (r *Reservation) ValidateSlot(capacity int) error {
	if r.Slot < 1 || r.Slot > capacity {
		return ErrInvalidSlot
	}
	return nil
}

// ExpiryCandidate - бронь вместе с данными, нужными для решения об удалении
type ExpiryCandidate struct {
	Reservation
	ValidTo        time.Time `json:"valid_to"`
	HasOpenSession bool      `json:"has_open_session"`
}

// IsExpired - бронь истекла и не обслуживает открытую сессию
func (c ExpiryCandidate) IsExpired(now time.Time) bool {
	return c.ValidTo.Before(now) && !c.HasOpenSession
}
