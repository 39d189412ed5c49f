package fee

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/shopspring/decimal"
)

// Границы дневного тарифа по местному времени парковки: [06:00, 18:00)
const (
	dayStartHour = 6
	dayEndHour   = 18
)

var (
	hoursPerDay     = decimal.NewFromInt(24)
	nightMultiplier = decimal.RequireFromString("1.5")
	hourNanos       = decimal.NewFromInt(int64(time.Hour))
)

// Calculator рассчитывает стоимость стоянки по тарифам
type Calculator struct {
	prices   repository.PriceRepository
	location *time.Location
	logger   logger.Logger
}

// NewCalculator создает калькулятор. location определяет, какие часы дневные.
func NewCalculator(prices repository.PriceRepository, location *time.Location, logger logger.Logger) *Calculator {
	if location == nil {
		location = time.UTC
	}
	return &Calculator{
		prices:   prices,
		location: location,
		logger:   logger,
	}
}

// Location возвращает часовой пояс парковки
func (c *Calculator) Location() *time.Location {
	return c.location
}

// ComputeFee возвращает стоимость интервала [start, end) для пары классов
func (c *Calculator) ComputeFee(
	ctx context.Context,
	ticketType domain.TicketType,
	vehicleType domain.VehicleType,
	start, end time.Time,
) (decimal.Decimal, error) {
	price, err := c.prices.Get(ctx, ticketType, vehicleType)
	if err != nil {
		if errors.Is(err, domain.ErrPriceNotConfigured) {
			c.logger.Warn("Price is not configured", map[string]interface{}{
				"ticket_type":  ticketType,
				"vehicle_type": vehicleType,
			})
		}
		return decimal.Zero, err
	}

	return Compute(ticketType, price.Price, start, end, c.location), nil
}

// CheckoutFee рассчитывает стоимость при выезде.
// DAILY оплачивает время стоянки. Абонементы бесплатны до конца окна действия,
// время после validTo оплачивается по тарифу DAILY для класса транспорта.
func (c *Calculator) CheckoutFee(
	ctx context.Context,
	ticket *domain.Ticket,
	holder *domain.UserTicket,
	vehicleType domain.VehicleType,
	checkedInAt, checkedOutAt time.Time,
) (decimal.Decimal, error) {
	if !ticket.Type.RequiresHolder() {
		return c.ComputeFee(ctx, domain.TicketTypeDaily, vehicleType, checkedInAt, checkedOutAt)
	}

	if holder == nil || !checkedOutAt.After(holder.ValidTo) {
		return decimal.Zero, nil
	}

	overstayFrom := holder.ValidTo
	if checkedInAt.After(overstayFrom) {
		overstayFrom = checkedInAt
	}

	return c.ComputeFee(ctx, domain.TicketTypeDaily, vehicleType, overstayFrom, checkedOutAt)
}

// Compute - чистый расчет по базовой цене.
//
// MONTHLY: base * max(1, календарных месяцев между start и end).
// Остальные: почасовой обход от start, час по дневной ставке base/24 или
// ночной ставке base/24*1.5, последний неполный час пропорционально.
// Итог округляется до 2 знаков и не меньше base. Пустой интервал стоит 0.
func Compute(ticketType domain.TicketType, base decimal.Decimal, start, end time.Time, loc *time.Location) decimal.Decimal {
	if ticketType == domain.TicketTypeMonthly {
		months := MonthsBetween(start, end, loc)
		if months < 1 {
			months = 1
		}
		return base.Mul(decimal.NewFromInt(int64(months))).Round(2)
	}

	if !end.After(start) {
		return decimal.Zero
	}

	total := ProrateHours(base, start, end, loc).Round(2)
	if total.LessThan(base) {
		return base
	}
	return total
}

// ProrateHours - сумма почасового обхода без округления и нижней границы.
// Шаг - ровно один час абсолютного времени, поэтому переход на летнее время
// не меняет длительность; дневной/ночной час определяется по местному времени начала шага.
func ProrateHours(base decimal.Decimal, start, end time.Time, loc *time.Location) decimal.Decimal {
	if loc == nil {
		loc = time.UTC
	}

	dayRate := base.Div(hoursPerDay)
	nightRate := dayRate.Mul(nightMultiplier)

	total := decimal.Zero
	for cursor := start; cursor.Before(end); cursor = cursor.Add(time.Hour) {
		rate := nightRate
		if isDayHour(cursor.In(loc).Hour()) {
			rate = dayRate
		}

		remaining := end.Sub(cursor)
		if remaining >= time.Hour {
			total = total.Add(rate)
			continue
		}

		fraction := decimal.NewFromInt(int64(remaining)).Div(hourNanos)
		total = total.Add(rate.Mul(fraction))
	}

	return total
}

// MonthsBetween - разница календарных месяцев: (y2*12 + m2) - (y1*12 + m1)
func MonthsBetween(start, end time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	s, e := start.In(loc), end.In(loc)
	return (e.Year()*12 + int(e.Month())) - (s.Year()*12 + int(s.Month()))
}

func isDayHour(hour int) bool {
	return hour >= dayStartHour && hour < dayEndHour
}
