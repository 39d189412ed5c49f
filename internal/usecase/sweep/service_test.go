package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/events"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/frontandrew/parking/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.calls++
	return nil
}

func TestSelect(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candidate := func(ticketID int64, validTo time.Time, open bool) domain.ExpiryCandidate {
		return domain.ExpiryCandidate{
			Reservation:    domain.Reservation{TicketID: ticketID, SectionID: 1, Slot: int(ticketID)},
			ValidTo:        validTo,
			HasOpenSession: open,
		}
	}

	tests := []struct {
		name       string
		candidates []domain.ExpiryCandidate
		want       []int64
	}{
		{
			name:       "пустой список",
			candidates: nil,
			want:       []int64{},
		},
		{
			name: "истекшая бронь без сессии",
			candidates: []domain.ExpiryCandidate{
				candidate(1, now.Add(-time.Second), false),
			},
			want: []int64{1},
		},
		{
			name: "открытая сессия защищает бронь",
			candidates: []domain.ExpiryCandidate{
				candidate(1, now.Add(-time.Hour), true),
				candidate(2, now.Add(-time.Hour), false),
			},
			want: []int64{2},
		},
		{
			name: "граница validTo == now не удаляется",
			candidates: []domain.ExpiryCandidate{
				candidate(1, now, false),
				candidate(2, now.Add(time.Hour), false),
			},
			want: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []int64{}
			for _, r := range Select(now, tt.candidates) {
				got = append(got, r.TicketID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type seed struct {
	repos repository.Repositories
}

func (s seed) reservation(t *testing.T, slot int, validTo time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	ticket := &domain.Ticket{Type: domain.TicketTypeReserved}
	require.NoError(t, s.repos.Tickets.Create(ctx, ticket))
	require.NoError(t, s.repos.UserTickets.Create(ctx, &domain.UserTicket{
		UserID:    uuid.New(),
		TicketID:  ticket.ID,
		VehicleID: int64(slot),
		ValidFrom: validTo.AddDate(0, -1, 0),
		ValidTo:   validTo,
	}))
	require.NoError(t, s.repos.Reservations.Create(ctx, &domain.Reservation{TicketID: ticket.ID, SectionID: 1, Slot: slot}))
	return ticket.ID
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := seed{repos: store.Repositories()}

	expired := s.reservation(t, 1, now.AddDate(0, 0, -1))
	parked := s.reservation(t, 2, now.AddDate(0, 0, -1))
	active := s.reservation(t, 3, now.AddDate(0, 0, 10))

	require.NoError(t, s.repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: 2, SectionID: 1, TicketID: parked, CheckedInAt: now.AddDate(0, 0, -2),
	}))

	invalidator := &countingInvalidator{}
	svc := NewService(store, invalidator, events.NoopPublisher{}, logger.NewNoop()).
		WithClock(func() time.Time { return now })

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, invalidator.calls)

	_, err = s.repos.Reservations.GetByTicketID(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	for _, kept := range []int64{parked, active} {
		_, err = s.repos.Reservations.GetByTicketID(ctx, kept)
		assert.NoError(t, err)
	}

	// повторный проход ничего не удаляет
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, 1, invalidator.calls)
}

func TestService_DeleteGuardsAgainstLateCheckIn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := seed{repos: store.Repositories()}

	ticketID := s.reservation(t, 1, now.AddDate(0, 0, -1))

	candidates, err := s.repos.Reservations.ListExpiryCandidates(ctx, now)
	require.NoError(t, err)
	selected := Select(now, candidates)
	require.Len(t, selected, 1)

	// въезд между выборкой и удалением
	require.NoError(t, s.repos.Sessions.Create(ctx, &domain.Session{
		VehicleID: 1, SectionID: 1, TicketID: ticketID, CheckedInAt: now,
	}))

	svc := NewService(store, &countingInvalidator{}, events.NoopPublisher{}, logger.NewNoop())
	deleted, err := svc.delete(ctx, s.repos, selected, now)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	_, err = s.repos.Reservations.GetByTicketID(ctx, ticketID)
	assert.NoError(t, err)
}
