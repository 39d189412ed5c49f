package ticket

import (
	"context"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/shopspring/decimal"
)

// QuoteRequest - запрос предварительного расчета стоимости
type QuoteRequest struct {
	TicketType  domain.TicketType  `json:"type"`
	VehicleType domain.VehicleType `json:"vehicle_class"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
}

// ListPrices возвращает все тарифы
func (s *Service) ListPrices(ctx context.Context) ([]*domain.TicketPrice, error) {
	return s.prices.List(ctx)
}

// SetPrice создает или меняет тариф
func (s *Service) SetPrice(ctx context.Context, price *domain.TicketPrice) error {
	if err := price.Validate(); err != nil {
		return err
	}
	price.Price = price.Price.Round(2)

	if err := s.prices.Upsert(ctx, price); err != nil {
		s.logger.Error("Failed to set price", map[string]interface{}{
			"ticket_type":  price.TicketType,
			"vehicle_type": price.VehicleType,
			"error":        err.Error(),
		})
		return err
	}

	s.logger.Info("Price updated", map[string]interface{}{
		"ticket_type":  price.TicketType,
		"vehicle_type": price.VehicleType,
		"price":        price.Price.String(),
	})
	return nil
}

// Quote рассчитывает стоимость интервала по текущим тарифам
func (s *Service) Quote(ctx context.Context, req *QuoteRequest) (decimal.Decimal, error) {
	if !req.TicketType.IsValid() {
		return decimal.Zero, domain.ErrInvalidTicketType
	}
	if !req.VehicleType.IsValid() {
		return decimal.Zero, domain.ErrInvalidVehicleType
	}
	if req.To.Before(req.From) {
		return decimal.Zero, domain.ErrInvalidDateRange
	}

	return s.fees.ComputeFee(ctx, req.TicketType, req.VehicleType, req.From, req.To)
}
