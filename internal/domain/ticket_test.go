package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTicket_NextStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     TicketStatus
		event      TicketEvent
		wantStatus TicketStatus
		wantErr    error
	}{
		{"въезд по свободному билету", TicketStatusAvailable, TicketEventCheckIn, TicketStatusInUse, nil},
		{"въезд по занятому билету", TicketStatusInUse, TicketEventCheckIn, TicketStatusInUse, ErrTicketNotAvailable},
		{"въезд по потерянному билету", TicketStatusLost, TicketEventCheckIn, TicketStatusLost, ErrTicketNotAvailable},
		{"выезд по занятому билету", TicketStatusInUse, TicketEventCheckOut, TicketStatusAvailable, nil},
		{"повторный выезд", TicketStatusAvailable, TicketEventCheckOut, TicketStatusAvailable, ErrTicketNotInUse},
		{"выезд по потерянному билету", TicketStatusLost, TicketEventCheckOut, TicketStatusLost, ErrTicketNotInUse},
		{"потеря свободного билета", TicketStatusAvailable, TicketEventMarkLost, TicketStatusLost, nil},
		{"потеря занятого билета", TicketStatusInUse, TicketEventMarkLost, TicketStatusLost, nil},
		{"потеря отмененного билета", TicketStatusCanceled, TicketEventMarkLost, TicketStatusLost, nil},
		{"повторная потеря", TicketStatusLost, TicketEventMarkLost, TicketStatusLost, nil},
		{"отмена свободного билета", TicketStatusAvailable, TicketEventCancel, TicketStatusCanceled, nil},
		{"отмена потерянного билета", TicketStatusLost, TicketEventCancel, TicketStatusCanceled, nil},
		{"отмена занятого билета", TicketStatusInUse, TicketEventCancel, TicketStatusInUse, ErrTicketInUse},
		{"повторная отмена", TicketStatusCanceled, TicketEventCancel, TicketStatusCanceled, ErrInvalidTicketState},
		{"неизвестное событие", TicketStatusAvailable, TicketEvent("teleport"), TicketStatusAvailable, ErrInvalidTicketState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &Ticket{ID: 1, Type: TicketTypeDaily, Status: tt.status}

			err := ticket.Apply(tt.event)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, ticket.Status)
		})
	}
}

func TestUserTicket_IsValidAt(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	holder := &UserTicket{UserID: uuid.New(), TicketID: 1, VehicleID: 1, ValidFrom: from, ValidTo: to}

	assert.True(t, holder.IsValidAt(from))
	assert.True(t, holder.IsValidAt(to))
	assert.True(t, holder.IsValidAt(from.Add(24*time.Hour)))
	assert.False(t, holder.IsValidAt(from.Add(-time.Second)))
	assert.False(t, holder.IsValidAt(to.Add(time.Second)))
}

func TestCaller_CanOperate(t *testing.T) {
	admin := &Caller{UserID: uuid.New(), Role: RoleAdmin}
	guard := &Caller{UserID: uuid.New(), Role: RoleSecurity, AllowedSectionIDs: []int64{1, 3}}
	var nobody *Caller

	assert.True(t, admin.CanOperate(42))
	assert.True(t, guard.CanOperate(3))
	assert.False(t, guard.CanOperate(2))
	assert.False(t, nobody.CanOperate(1))
}

func TestCaller_CanManageTicket(t *testing.T) {
	owner := &Caller{UserID: uuid.New(), Role: RoleUser}
	stranger := &Caller{UserID: uuid.New(), Role: RoleUser}
	guard := &Caller{UserID: uuid.New(), Role: RoleSecurity}
	admin := &Caller{UserID: uuid.New(), Role: RoleAdmin}
	holder := &UserTicket{UserID: owner.UserID, TicketID: 7, VehicleID: 1}

	assert.True(t, owner.CanManageTicket(holder))
	assert.False(t, stranger.CanManageTicket(holder))
	assert.False(t, guard.CanManageTicket(holder))
	assert.True(t, admin.CanManageTicket(nil))

	assert.True(t, guard.CanViewTicket(holder))
	assert.False(t, stranger.CanViewTicket(holder))
}

func TestNormalizeLicensePlate(t *testing.T) {
	assert.Equal(t, "51A12345", NormalizeLicensePlate(" 51a 123 45 "))
	assert.Equal(t, "ABC", NormalizeLicensePlate("abc"))
}

func TestAvailability(t *testing.T) {
	a := NewAvailability(1, 10, 6, 3)
	assert.Equal(t, 1, a.Available)
	assert.False(t, a.IsFull())

	full := NewAvailability(1, 10, 7, 3)
	assert.True(t, full.IsFull())
}
