package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/frontandrew/parking/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservedTicket(t *testing.T, repos repository.Repositories, sectionID int64, slot int, validTo time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	ticket := &domain.Ticket{Type: domain.TicketTypeReserved}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	require.NoError(t, repos.UserTickets.Create(ctx, &domain.UserTicket{
		UserID:    uuid.New(),
		TicketID:  ticket.ID,
		VehicleID: 1,
		ValidFrom: validTo.AddDate(0, -1, 0),
		ValidTo:   validTo,
	}))
	require.NoError(t, repos.Reservations.Create(ctx, &domain.Reservation{
		TicketID: ticket.ID, SectionID: sectionID, Slot: slot,
	}))
	return ticket.ID
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	section := &domain.Section{Name: "A", Capacity: 5}
	require.NoError(t, repos.Sections.Create(ctx, section))

	// действующая бронь без сессии
	reservedTicket(t, repos, section.ID, 1, now.AddDate(0, 0, 30))
	// истекшая бронь
	reservedTicket(t, repos, section.ID, 2, now.AddDate(0, 0, -1))
	// действующая бронь, машина уже на месте
	parked := reservedTicket(t, repos, section.ID, 3, now.AddDate(0, 0, 30))
	require.NoError(t, repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: 1, SectionID: section.ID, TicketID: parked, CheckedInAt: now.Add(-time.Hour),
	}))
	// разовый билет на месте
	require.NoError(t, repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: 2, SectionID: section.ID, TicketID: 100, CheckedInAt: now.Add(-time.Hour),
	}))
	// закрытая сессия не занимает место
	closed := &domain.Session{VehicleID: 3, SectionID: section.ID, TicketID: 101, CheckedInAt: now.Add(-2 * time.Hour)}
	require.NoError(t, repos.Sessions.Create(ctx, closed))
	closed.Close(now.Add(-time.Hour), decimal.NewFromInt(10))
	require.NoError(t, repos.Sessions.Close(ctx, closed))

	availability, err := AvailableSlots(ctx, repos, section.ID, now)
	require.NoError(t, err)

	assert.Equal(t, domain.Availability{
		SectionID:      section.ID,
		Capacity:       5,
		Occupied:       2,
		ActiveReserved: 1,
		Available:      2,
	}, availability)
	assert.False(t, availability.IsFull())
}

func TestLock_SectionNotFound(t *testing.T) {
	repos := memory.NewStore().Repositories()

	_, _, err := Lock(context.Background(), repos, 42, time.Now())
	assert.ErrorIs(t, err, domain.ErrSectionNotFound)
}
