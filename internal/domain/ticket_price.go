package domain

import "github.com/shopspring/decimal"

// TicketPrice - базовая цена для пары (класс билета, класс транспорта).
// Для DAILY это цена суток, для MONTHLY и RESERVED - цена месяца.
type TicketPrice struct {
	TicketType  TicketType      `json:"type"`
	VehicleType VehicleType     `json:"vehicle_type"`
	Price       decimal.Decimal `json:"price"`
}

// Validate проверяет корректность цены
func (p *TicketPrice) Validate() error {
	if !p.TicketType.IsValid() {
		return ErrInvalidTicketType
	}
	if !p.VehicleType.IsValid() {
		return ErrInvalidVehicleType
	}
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}
