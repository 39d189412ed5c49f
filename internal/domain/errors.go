package domain

import "errors"

// Доменные ошибки - используются во всех слоях приложения

// Ticket errors
var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotAvailable  = errors.New("ticket is not available")
	ErrTicketNotInUse      = errors.New("ticket is not in use")
	ErrTicketInUse         = errors.New("ticket is in use")
	ErrTicketExpired       = errors.New("ticket is outside of its validity window")
	ErrInvalidTicketState  = errors.New("invalid ticket state transition")
	ErrInvalidTicketType   = errors.New("invalid ticket type")
	ErrInvalidTicketData   = errors.New("invalid ticket data")
	ErrUserTicketNotFound  = errors.New("ticket holder not found")
	ErrPlateMismatch       = errors.New("plate does not match ticket vehicle")
	ErrNotReservedTicket   = errors.New("ticket is not a reserved ticket")
	ErrPriceNotConfigured  = errors.New("price is not configured")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidDateRange    = errors.New("invalid date range")
)

// Section errors
var (
	ErrSectionNotFound      = errors.New("section not found")
	ErrSectionAlreadyExists = errors.New("section already exists")
	ErrInvalidSectionData   = errors.New("invalid section data")
	ErrSectionFull          = errors.New("section is full")
)

// Reservation errors
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSlotAlreadyReserved = errors.New("slot already reserved")
	ErrAlreadyReserved     = errors.New("ticket already has a reservation")
	ErrInvalidSlot         = errors.New("invalid slot")
)

// Vehicle errors
var (
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrInvalidLicensePlate = errors.New("invalid license plate")
	ErrInvalidVehicleType  = errors.New("invalid vehicle type")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Authorization errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// Store errors
var (
	// ErrConflict - сериализационный конфликт, deadlock или нарушение уникальности
	ErrConflict = errors.New("conflict")
	// ErrTransient - таймаут или потеря соединения с хранилищем
	ErrTransient = errors.New("transient store error")
)

// General errors
var (
	ErrInternal   = errors.New("internal server error")
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)
