package repository

import (
	"context"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/shopspring/decimal"
)

// SectionRepository определяет методы для работы с секциями
type SectionRepository interface {
	// Create создает новую секцию
	Create(ctx context.Context, section *domain.Section) error

	// GetByID возвращает секцию по ID
	GetByID(ctx context.Context, id int64) (*domain.Section, error)

	// GetByIDForUpdate возвращает секцию и блокирует ее строку до конца транзакции.
	// Все операции, меняющие занятость секции, проходят через эту блокировку.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Section, error)

	// Update обновляет имя и вместимость секции
	Update(ctx context.Context, section *domain.Section) error

	// List возвращает все секции
	List(ctx context.Context) ([]*domain.Section, error)

	// ListByIDs возвращает секции из списка
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Section, error)
}

// VehicleRepository определяет методы для работы с транспортными средствами
type VehicleRepository interface {
	// CreateIfNotExists вставляет запись, если номер еще не зарегистрирован.
	// Возвращает false, если номер уже есть (vehicle при этом не заполняется).
	CreateIfNotExists(ctx context.Context, vehicle *domain.Vehicle) (bool, error)

	// GetByID возвращает транспортное средство по ID
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)

	// GetByLicensePlate возвращает транспортное средство по нормализованному номеру
	GetByLicensePlate(ctx context.Context, licensePlate string) (*domain.Vehicle, error)
}

// TicketRepository определяет методы для работы с билетами
type TicketRepository interface {
	// Create создает новый билет
	Create(ctx context.Context, ticket *domain.Ticket) error

	// GetByID возвращает билет по ID
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)

	// GetByIDForUpdate возвращает билет и блокирует его строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)

	// UpdateStatus меняет состояние билета
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error
}

// UserTicketRepository определяет методы для работы с владельцами абонементов
type UserTicketRepository interface {
	// Create привязывает билет к владельцу и транспортному средству
	Create(ctx context.Context, userTicket *domain.UserTicket) error

	// GetByTicketID возвращает владельца билета
	GetByTicketID(ctx context.Context, ticketID int64) (*domain.UserTicket, error)
}

// ReservationRepository определяет методы для работы с закрепленными местами
type ReservationRepository interface {
	// Create закрепляет место за билетом
	// ErrSlotAlreadyReserved - место занято, ErrAlreadyReserved - у билета уже есть бронь
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByTicketID возвращает бронь билета
	GetByTicketID(ctx context.Context, ticketID int64) (*domain.Reservation, error)

	// DeleteByTicketID удаляет бронь билета (отсутствие брони не ошибка)
	DeleteByTicketID(ctx context.Context, ticketID int64) error

	// ListBySection возвращает брони секции, упорядоченные по месту
	ListBySection(ctx context.Context, sectionID int64) ([]*domain.Reservation, error)

	// CountActive считает действующие брони секции:
	// владелец действует после now и по билету нет открытой сессии
	CountActive(ctx context.Context, sectionID int64, now time.Time) (int, error)

	// MaxSlot возвращает наибольший занятый номер места (0 если броней нет)
	MaxSlot(ctx context.Context, sectionID int64) (int, error)

	// ListExpiryCandidates возвращает брони, у которых окно действия закончилось до now
	ListExpiryCandidates(ctx context.Context, now time.Time) ([]domain.ExpiryCandidate, error)

	// DeleteExpired удаляет бронь, если она истекла и по билету нет открытой сессии.
	// Условие проверяется в самом запросе удаления.
	DeleteExpired(ctx context.Context, ticketID int64, now time.Time) (bool, error)
}

// SessionRepository определяет методы для работы с сессиями стоянки
type SessionRepository interface {
	// Create открывает сессию. Вторая открытая сессия по билету - ErrConflict
	Create(ctx context.Context, session *domain.Session) error

	// GetOpenByTicketID возвращает открытую сессию билета
	GetOpenByTicketID(ctx context.Context, ticketID int64) (*domain.Session, error)

	// Close записывает время выезда и стоимость
	Close(ctx context.Context, session *domain.Session) error

	// CountOpen считает открытые сессии в секции
	CountOpen(ctx context.Context, sectionID int64) (int, error)

	// ListBySection возвращает сессии секции с въездом в [from, to]
	ListBySection(ctx context.Context, sectionID int64, from, to time.Time) ([]*domain.Session, error)

	// Revenue возвращает сумму стоимостей и число сессий с въездом в [from, to]
	Revenue(ctx context.Context, sectionID int64, from, to time.Time) (decimal.Decimal, int, error)
}

// PriceRepository определяет методы для работы с тарифами
type PriceRepository interface {
	// Get возвращает базовую цену; отсутствие тарифа - ErrPriceNotConfigured
	Get(ctx context.Context, ticketType domain.TicketType, vehicleType domain.VehicleType) (*domain.TicketPrice, error)

	// List возвращает все тарифы
	List(ctx context.Context) ([]*domain.TicketPrice, error)

	// Upsert создает или обновляет тариф
	Upsert(ctx context.Context, price *domain.TicketPrice) error
}

// Repositories - набор репозиториев, привязанных к одному соединению или транзакции
type Repositories struct {
	Sections     SectionRepository
	Vehicles     VehicleRepository
	Tickets      TicketRepository
	UserTickets  UserTicketRepository
	Reservations ReservationRepository
	Sessions     SessionRepository
	Prices       PriceRepository
}

// TxFunc - работа, выполняемая внутри одной транзакции
type TxFunc func(ctx context.Context, repos Repositories) error

// Store дает доступ к репозиториям и к транзакциям над ними
type Store interface {
	// Repositories возвращает репозитории вне транзакции
	Repositories() Repositories

	// WithinTx выполняет fn в одной транзакции.
	// Ошибка fn откатывает все изменения, сделанные через переданные репозитории.
	WithinTx(ctx context.Context, fn TxFunc) error
}
