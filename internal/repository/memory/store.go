// Package memory - хранилище в памяти с теми же контрактами, что и postgres.
// Транзакции полностью сериализуются и работают над копией данных,
// ошибка внутри транзакции отбрасывает копию. Тарифы хранятся отдельно
// и транзакциями не откатываются.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/google/uuid"
)

type priceKey struct {
	ticketType  domain.TicketType
	vehicleType domain.VehicleType
}

type priceTable struct {
	mu   sync.RWMutex
	rows map[priceKey]domain.TicketPrice
}

type tables struct {
	sections     map[int64]domain.Section
	vehicles     map[int64]domain.Vehicle
	plates       map[string]int64
	tickets      map[int64]domain.Ticket
	userTickets  map[int64]domain.UserTicket
	reservations map[int64]domain.Reservation // по ticket_id
	sessions     map[uuid.UUID]domain.Session

	sectionSeq int64
	vehicleSeq int64
	ticketSeq  int64
}

func newTables() *tables {
	return &tables{
		sections:     map[int64]domain.Section{},
		vehicles:     map[int64]domain.Vehicle{},
		plates:       map[string]int64{},
		tickets:      map[int64]domain.Ticket{},
		userTickets:  map[int64]domain.UserTicket{},
		reservations: map[int64]domain.Reservation{},
		sessions:     map[uuid.UUID]domain.Session{},
	}
}

// clone копирует таблицы. Значения хранятся по значению и заменяются целиком,
// поэтому достаточно копии карт.
func (t *tables) clone() *tables {
	return &tables{
		sections:     maps.Clone(t.sections),
		vehicles:     maps.Clone(t.vehicles),
		plates:       maps.Clone(t.plates),
		tickets:      maps.Clone(t.tickets),
		userTickets:  maps.Clone(t.userTickets),
		reservations: maps.Clone(t.reservations),
		sessions:     maps.Clone(t.sessions),
		sectionSeq:   t.sectionSeq,
		vehicleSeq:   t.vehicleSeq,
		ticketSeq:    t.ticketSeq,
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// db - доступ репозиториев к таблицам
type db struct {
	lock   sync.Locker
	tables func() *tables
}

// Store реализует repository.Store в памяти
type Store struct {
	mu     sync.Mutex
	data   *tables
	prices *priceTable
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		data:   newTables(),
		prices: &priceTable{rows: map[priceKey]domain.TicketPrice{}},
	}
}

// Repositories возвращает репозитории вне транзакции
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(&db{
		lock:   &s.mu,
		tables: func() *tables { return s.data },
	}, s.prices)
}

// WithinTx выполняет fn над копией данных и публикует копию только при успехе
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	work := s.data.clone()
	repos := newRepositories(&db{
		lock:   noopLocker{},
		tables: func() *tables { return work },
	}, s.prices)

	if err := fn(ctx, repos); err != nil {
		return err
	}

	s.data = work
	return nil
}

func newRepositories(d *db, prices *priceTable) repository.Repositories {
	return repository.Repositories{
		Sections:     &sectionRepository{db: d},
		Vehicles:     &vehicleRepository{db: d},
		Tickets:      &ticketRepository{db: d},
		UserTickets:  &userTicketRepository{db: d},
		Reservations: &reservationRepository{db: d},
		Sessions:     &sessionRepository{db: d},
		Prices:       &priceRepository{table: prices},
	}
}
