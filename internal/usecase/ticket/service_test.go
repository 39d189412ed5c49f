package ticket

import (
	"context"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/frontandrew/parking/internal/repository/memory"
	"github.com/frontandrew/parking/internal/usecase/fee"
	"github.com/frontandrew/parking/internal/usecase/vehicle"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopInvalidator struct{ sections []int64 }

func (n *nopInvalidator) Invalidate(_ context.Context, sectionID int64) error {
	n.sections = append(n.sections, sectionID)
	return nil
}

type fixture struct {
	repos       repository.Repositories
	svc         *Service
	invalidator *nopInvalidator
	now         time.Time
	admin       *domain.Caller
	owner       *domain.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.NewNoop()

	require.NoError(t, repos.Prices.Upsert(context.Background(), &domain.TicketPrice{
		TicketType: domain.TicketTypeDaily, VehicleType: domain.VehicleTypeCar, Price: decimal.NewFromInt(240000),
	}))

	f := &fixture{
		repos:       repos,
		invalidator: &nopInvalidator{},
		now:         time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		admin:       &domain.Caller{UserID: uuid.New(), Role: domain.RoleAdmin},
		owner:       &domain.Caller{UserID: uuid.New(), Role: domain.RoleUser},
	}
	f.svc = NewService(
		store,
		repos.Prices,
		vehicle.NewService(store, log),
		fee.NewCalculator(repos.Prices, time.UTC, log),
		f.invalidator,
		log,
	).WithClock(func() time.Time { return f.now })

	return f
}

func (f *fixture) section(t *testing.T, name string, capacity int) int64 {
	t.Helper()
	s := &domain.Section{Name: name, Capacity: capacity}
	require.NoError(t, f.repos.Sections.Create(context.Background(), s))
	return s.ID
}

func (f *fixture) subscription(t *testing.T, ticketType domain.TicketType, plate string, vehicleType domain.VehicleType) *domain.Ticket {
	t.Helper()
	req := MonthlySubscription{UserID: f.owner.UserID, Plate: plate, VehicleType: vehicleType}

	var issued []*domain.Ticket
	var err error
	if ticketType == domain.TicketTypeMonthly {
		issued, err = f.svc.Issue(context.Background(), req)
	} else {
		// RESERVED без места: создаем через репозитории
		ticket := &domain.Ticket{Type: ticketType}
		require.NoError(t, f.repos.Tickets.Create(context.Background(), ticket))
		v := &domain.Vehicle{LicensePlate: plate, VehicleType: vehicleType}
		_, err = f.repos.Vehicles.CreateIfNotExists(context.Background(), v)
		require.NoError(t, err)
		require.NoError(t, f.repos.UserTickets.Create(context.Background(), &domain.UserTicket{
			UserID: f.owner.UserID, TicketID: ticket.ID, VehicleID: v.ID,
			ValidFrom: f.now, ValidTo: f.now.AddDate(0, 1, 0),
		}))
		issued = []*domain.Ticket{ticket}
	}
	require.NoError(t, err)
	return issued[0]
}

func TestService_IssueDailyBatch(t *testing.T) {
	f := newFixture(t)

	tickets, err := f.svc.Issue(context.Background(), DailyBatch{Amount: 3})
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	for _, ticket := range tickets {
		assert.Equal(t, domain.TicketTypeDaily, ticket.Type)
		assert.Equal(t, domain.TicketStatusAvailable, ticket.Status)
	}

	_, err = f.svc.Issue(context.Background(), DailyBatch{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidTicketData)
}

func TestService_IssueMonthlySubscription(t *testing.T) {
	f := newFixture(t)

	tickets, err := f.svc.Issue(context.Background(), MonthlySubscription{
		UserID:      f.owner.UserID,
		Plate:       "30k 11111",
		VehicleType: domain.VehicleTypeCar,
		ValidFrom:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Months:      2,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	holder := tickets[0].Holder
	require.NotNil(t, holder)
	assert.Equal(t, f.owner.UserID, holder.UserID)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), holder.ValidTo)

	v, err := f.repos.Vehicles.GetByLicensePlate(context.Background(), "30K11111")
	require.NoError(t, err)
	assert.Equal(t, v.ID, holder.VehicleID)
}

func TestService_IssueReservedSlot(t *testing.T) {
	f := newFixture(t)
	sectionID := f.section(t, "A", 2)

	base := MonthlySubscription{UserID: f.owner.UserID, Plate: "30K11111", VehicleType: domain.VehicleTypeCar}

	tickets, err := f.svc.Issue(context.Background(), ReservedSlot{MonthlySubscription: base, SectionID: sectionID, Slot: 2})
	require.NoError(t, err)
	require.NotNil(t, tickets[0].Reservation)
	assert.Equal(t, []int64{sectionID}, f.invalidator.sections)

	tests := []struct {
		name    string
		req     ReservedSlot
		wantErr error
	}{
		{
			name:    "место уже занято",
			req:     ReservedSlot{MonthlySubscription: base, SectionID: sectionID, Slot: 2},
			wantErr: domain.ErrSlotAlreadyReserved,
		},
		{
			name:    "номер места больше вместимости",
			req:     ReservedSlot{MonthlySubscription: base, SectionID: sectionID, Slot: 3},
			wantErr: domain.ErrInvalidSlot,
		},
		{
			name: "мотоцикл не может закрепить место",
			req: ReservedSlot{
				MonthlySubscription: MonthlySubscription{UserID: f.owner.UserID, Plate: "59X112345", VehicleType: domain.VehicleTypeMotorbike},
				SectionID:           sectionID,
				Slot:                1,
			},
			wantErr: domain.ErrInvalidVehicleType,
		},
		{
			name:    "секция не существует",
			req:     ReservedSlot{MonthlySubscription: base, SectionID: 404, Slot: 1},
			wantErr: domain.ErrSectionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Issue(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// неудачный выпуск не оставил билетов: следующий билет получает id 2
	next, err := f.svc.Issue(context.Background(), DailyBatch{Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next[0].ID)
}

func TestService_Reserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sectionID := f.section(t, "A", 2)

	reserved := f.subscription(t, domain.TicketTypeReserved, "30K11111", domain.VehicleTypeCar)
	monthly := f.subscription(t, domain.TicketTypeMonthly, "30K22222", domain.VehicleTypeCar)
	stranger := &domain.Caller{UserID: uuid.New(), Role: domain.RoleUser}

	_, err := f.svc.Reserve(ctx, f.owner, monthly.ID, sectionID, 1)
	assert.ErrorIs(t, err, domain.ErrNotReservedTicket)

	_, err = f.svc.Reserve(ctx, stranger, reserved.ID, sectionID, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Reserve(ctx, f.owner, reserved.ID, sectionID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSlot)

	reservation, err := f.svc.Reserve(ctx, f.owner, reserved.ID, sectionID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, reservation.Slot)

	_, err = f.svc.Reserve(ctx, f.admin, reserved.ID, sectionID, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyReserved)

	// после окончания абонемента закрепить место нельзя
	f.now = f.now.AddDate(0, 2, 0)
	other := f.subscription(t, domain.TicketTypeReserved, "30K33333", domain.VehicleTypeCar)
	f.now = f.now.AddDate(0, 2, 0)
	_, err = f.svc.Reserve(ctx, f.owner, other.ID, sectionID, 2)
	assert.ErrorIs(t, err, domain.ErrTicketExpired)
}

func TestService_ReserveFullSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sectionID := f.section(t, "A", 1)

	// машина по разовому билету занимает единственное место
	require.NoError(t, f.repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: 99, SectionID: sectionID, TicketID: 99, CheckedInAt: f.now,
	}))

	reserved := f.subscription(t, domain.TicketTypeReserved, "30K11111", domain.VehicleTypeCar)
	_, err := f.svc.Reserve(ctx, f.owner, reserved.ID, sectionID, 1)
	assert.ErrorIs(t, err, domain.ErrSectionFull)
}

func TestService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sectionID := f.section(t, "A", 2)

	reserved := f.subscription(t, domain.TicketTypeReserved, "30K11111", domain.VehicleTypeCar)
	_, err := f.svc.Reserve(ctx, f.owner, reserved.ID, sectionID, 1)
	require.NoError(t, err)

	stranger := &domain.Caller{UserID: uuid.New(), Role: domain.RoleUser}
	_, err = f.svc.Cancel(ctx, stranger, reserved.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// билет на парковке отменить нельзя
	require.NoError(t, f.repos.Tickets.UpdateStatus(ctx, reserved.ID, domain.TicketStatusInUse))
	_, err = f.svc.Cancel(ctx, f.owner, reserved.ID)
	assert.ErrorIs(t, err, domain.ErrTicketInUse)
	require.NoError(t, f.repos.Tickets.UpdateStatus(ctx, reserved.ID, domain.TicketStatusAvailable))

	canceled, err := f.svc.Cancel(ctx, f.owner, reserved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCanceled, canceled.Status)

	_, err = f.repos.Reservations.GetByTicketID(ctx, reserved.ID)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = f.svc.Cancel(ctx, f.owner, reserved.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketState)

	// анонимный билет отменяет только администратор
	daily, err := f.svc.Issue(ctx, DailyBatch{Amount: 1})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.owner, daily[0].ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Cancel(ctx, f.admin, daily[0].ID)
	assert.NoError(t, err)
}

func TestService_MarkLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sectionID := f.section(t, "A", 2)

	daily, err := f.svc.Issue(ctx, DailyBatch{Amount: 2})
	require.NoError(t, err)

	// свободный билет
	closed, err := f.svc.MarkLost(ctx, daily[0].ID)
	require.NoError(t, err)
	assert.Nil(t, closed)

	// повторная потеря не меняет билет
	closed, err = f.svc.MarkLost(ctx, daily[0].ID)
	require.NoError(t, err)
	assert.Nil(t, closed)

	// билет на парковке: сессия закрывается с оплатой
	v := &domain.Vehicle{LicensePlate: "30K11111", VehicleType: domain.VehicleTypeCar}
	_, err = f.repos.Vehicles.CreateIfNotExists(ctx, v)
	require.NoError(t, err)
	require.NoError(t, f.repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: v.ID, SectionID: sectionID, TicketID: daily[1].ID, CheckedInAt: f.now,
	}))
	require.NoError(t, f.repos.Tickets.UpdateStatus(ctx, daily[1].ID, domain.TicketStatusInUse))

	f.now = f.now.Add(2 * time.Hour)
	closed, err = f.svc.MarkLost(ctx, daily[1].ID)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.True(t, closed.Fee.Decimal.Equal(decimal.NewFromInt(240000)))

	open, err := f.repos.Sessions.CountOpen(ctx, sectionID)
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestService_MarkLostCanceled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monthly := f.subscription(t, domain.TicketTypeMonthly, "30K22222", domain.VehicleTypeCar)
	_, err := f.svc.Cancel(ctx, f.owner, monthly.ID)
	require.NoError(t, err)

	closed, err := f.svc.MarkLost(ctx, monthly.ID)
	require.NoError(t, err)
	assert.Nil(t, closed)

	got, err := f.repos.Tickets.GetByID(ctx, monthly.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusLost, got.Status)
}

func TestService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monthly := f.subscription(t, domain.TicketTypeMonthly, "30K11111", domain.VehicleTypeCar)
	guard := &domain.Caller{UserID: uuid.New(), Role: domain.RoleSecurity}
	stranger := &domain.Caller{UserID: uuid.New(), Role: domain.RoleUser}

	for _, caller := range []*domain.Caller{f.admin, guard, f.owner} {
		got, err := f.svc.Get(ctx, caller, monthly.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Holder)
		assert.Nil(t, got.Reservation)
	}

	_, err := f.svc.Get(ctx, stranger, monthly.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(ctx, f.admin, 404)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestService_Pricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.SetPrice(ctx, &domain.TicketPrice{
		TicketType: domain.TicketTypeMonthly, VehicleType: domain.VehicleTypeCar, Price: decimal.RequireFromString("1500000.005"),
	})
	require.NoError(t, err)

	err = f.svc.SetPrice(ctx, &domain.TicketPrice{
		TicketType: domain.TicketTypeMonthly, VehicleType: domain.VehicleTypeCar, Price: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	prices, err := f.svc.ListPrices(ctx)
	require.NoError(t, err)
	assert.Len(t, prices, 2)

	quote, err := f.svc.Quote(ctx, &QuoteRequest{
		TicketType:  domain.TicketTypeMonthly,
		VehicleType: domain.VehicleTypeCar,
		From:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, quote.Equal(decimal.RequireFromString("1500000.01")), quote.String())

	_, err = f.svc.Quote(ctx, &QuoteRequest{
		TicketType:  domain.TicketTypeDaily,
		VehicleType: domain.VehicleTypeCar,
		From:        f.now,
		To:          f.now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = f.svc.Quote(ctx, &QuoteRequest{
		TicketType:  domain.TicketTypeDaily,
		VehicleType: domain.VehicleTypeMotorbike,
		From:        f.now,
		To:          f.now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrPriceNotConfigured)
}
