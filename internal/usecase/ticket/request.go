package ticket

import (
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/google/uuid"
)

// Ограничения выпуска
const (
	maxBatchAmount      = 1000
	maxSubscriptionTerm = 12
)

// IssueRequest - запрос на выпуск билетов. Реализации: DailyBatch,
// MonthlySubscription, ReservedSlot.
type IssueRequest interface {
	Validate() error
	isIssueRequest()
}

// DailyBatch - партия анонимных разовых билетов
type DailyBatch struct {
	Amount int `json:"amount"`
}

// MonthlySubscription - абонемент, привязанный к владельцу и номеру
type MonthlySubscription struct {
	UserID      uuid.UUID          `json:"user_id"`
	Plate       string             `json:"plate"`
	VehicleType domain.VehicleType `json:"vehicle_class"`
	ValidFrom   time.Time          `json:"valid_from"`
	Months      int                `json:"months"`
}

// ReservedSlot - абонемент с закрепленным местом в секции
type ReservedSlot struct {
	MonthlySubscription
	SectionID int64 `json:"section_id"`
	Slot      int   `json:"slot"`
}

func (DailyBatch) isIssueRequest()          {}
func (MonthlySubscription) isIssueRequest() {}
func (ReservedSlot) isIssueRequest()        {}

// Validate проверяет размер партии
func (r DailyBatch) Validate() error {
	if r.Amount < 1 || r.Amount > maxBatchAmount {
		return domain.ErrInvalidTicketData
	}
	return nil
}

// Validate проверяет владельца, класс транспорта и срок
func (r MonthlySubscription) Validate() error {
	if r.UserID == uuid.Nil {
		return domain.ErrInvalidTicketData
	}
	if !r.VehicleType.IsValid() {
		return domain.ErrInvalidVehicleType
	}
	if r.Months < 0 || r.Months > maxSubscriptionTerm {
		return domain.ErrInvalidDateRange
	}
	return nil
}

// Validate дополнительно требует легковой автомобиль и номер места
func (r ReservedSlot) Validate() error {
	if err := r.MonthlySubscription.Validate(); err != nil {
		return err
	}
	if r.VehicleType != domain.VehicleTypeCar {
		return domain.ErrInvalidVehicleType
	}
	if r.SectionID <= 0 || r.Slot < 1 {
		return domain.ErrInvalidSlot
	}
	return nil
}

// window возвращает окно действия; по умолчанию один месяц с текущего момента
func (r MonthlySubscription) window(now time.Time) (time.Time, time.Time) {
	from := r.ValidFrom
	if from.IsZero() {
		from = now
	}
	months := r.Months
	if months == 0 {
		months = 1
	}
	return from, from.AddDate(0, months, 0)
}
