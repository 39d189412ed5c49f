package postgres

import (
	"context"
	"time"

	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX - общий интерфейс пула соединений и транзакции
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store реализует repository.Store поверх pgxpool
type Store struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewStore создает хранилище. txTimeout ограничивает длительность одной транзакции
// (0 - без ограничения).
func NewStore(pool *pgxpool.Pool, txTimeout time.Duration) *Store {
	return &Store{pool: pool, txTimeout: txTimeout}
}

// Repositories возвращает репозитории, работающие напрямую через пул
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.pool)
}

// WithinTx выполняет fn в транзакции READ COMMITTED.
// Сериализация конкурирующих операций обеспечивается блокировками строк (SELECT ... FOR UPDATE).
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) (err error) {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.Background())
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	committed = true

	return nil
}

func newRepositories(db DBTX) repository.Repositories {
	return repository.Repositories{
		Sections:     NewSectionRepository(db),
		Vehicles:     NewVehicleRepository(db),
		Tickets:      NewTicketRepository(db),
		UserTickets:  NewUserTicketRepository(db),
		Reservations: NewReservationRepository(db),
		Sessions:     NewSessionRepository(db),
		Prices:       NewPriceRepository(db),
	}
}
