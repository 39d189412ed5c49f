package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/ticket"
	"github.com/google/uuid"
)

// TicketService определяет интерфейс сервиса билетов
type TicketService interface {
	Issue(ctx context.Context, req ticket.IssueRequest) ([]*domain.Ticket, error)
	Get(ctx context.Context, caller *domain.Caller, ticketID int64) (*domain.Ticket, error)
	Reserve(ctx context.Context, caller *domain.Caller, ticketID, sectionID int64, slot int) (*domain.Reservation, error)
	Cancel(ctx context.Context, caller *domain.Caller, ticketID int64) (*domain.Ticket, error)
	MarkLost(ctx context.Context, ticketID int64) (*domain.Session, error)
}

// IssueTicketRequest - тело запроса на выпуск; type выбирает вариант
type IssueTicketRequest struct {
	Type        domain.TicketType  `json:"type"`
	Amount      int                `json:"amount,omitempty"`
	UserID      uuid.UUID          `json:"user_id,omitempty"`
	Plate       string             `json:"plate,omitempty"`
	VehicleType domain.VehicleType `json:"vehicle_class,omitempty"`
	ValidFrom   time.Time          `json:"valid_from,omitempty"`
	Months      int                `json:"months,omitempty"`
	SectionID   int64              `json:"section_id,omitempty"`
	Slot        int                `json:"slot,omitempty"`
}

// ToIssueRequest собирает вариант запроса по классу билета
func (r *IssueTicketRequest) ToIssueRequest() (ticket.IssueRequest, error) {
	subscription := ticket.MonthlySubscription{
		UserID:      r.UserID,
		Plate:       r.Plate,
		VehicleType: r.VehicleType,
		ValidFrom:   r.ValidFrom,
		Months:      r.Months,
	}

	switch r.Type {
	case domain.TicketTypeDaily:
		return ticket.DailyBatch{Amount: r.Amount}, nil
	case domain.TicketTypeMonthly:
		return subscription, nil
	case domain.TicketTypeReserved:
		return ticket.ReservedSlot{
			MonthlySubscription: subscription,
			SectionID:           r.SectionID,
			Slot:                r.Slot,
		}, nil
	default:
		return nil, domain.ErrInvalidTicketType
	}
}

// ReserveRequest - тело запроса на закрепление места
type ReserveRequest struct {
	SectionID int64 `json:"section_id"`
	Slot      int   `json:"slot"`
}

// TicketHandler обрабатывает запросы по билетам
type TicketHandler struct {
	ticketService TicketService
	logger        logger.Logger
}

// NewTicketHandler создает новый handler
func NewTicketHandler(ticketService TicketService, logger logger.Logger) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        logger,
	}
}

// IssueTickets выпускает билеты
// POST /api/v1/tickets
func (h *TicketHandler) IssueTickets(w http.ResponseWriter, r *http.Request) {
	var body IssueTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := body.ToIssueRequest()
	if err != nil {
		respondServiceError(w, h.logger, "Failed to issue tickets", err)
		return
	}

	tickets, err := h.ticketService.Issue(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to issue tickets", err)
		return
	}

	respondData(w, http.StatusCreated, tickets)
}

// GetTicket возвращает билет с владельцем и бронью
// GET /api/v1/tickets/{id}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := ticketCallerAndID(w, r)
	if !ok {
		return
	}

	t, err := h.ticketService.Get(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to get ticket", err)
		return
	}

	respondData(w, http.StatusOK, t)
}

// ReserveSlot закрепляет место за билетом
// POST /api/v1/tickets/{id}/reserve
func (h *TicketHandler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := ticketCallerAndID(w, r)
	if !ok {
		return
	}

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reservation, err := h.ticketService.Reserve(r.Context(), caller, id, req.SectionID, req.Slot)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to reserve slot", err)
		return
	}

	respondData(w, http.StatusCreated, reservation)
}

// CancelTicket отменяет билет и освобождает место
// POST /api/v1/tickets/{id}/cancel
func (h *TicketHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := ticketCallerAndID(w, r)
	if !ok {
		return
	}

	t, err := h.ticketService.Cancel(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to cancel ticket", err)
		return
	}

	respondData(w, http.StatusOK, t)
}

// MarkLost помечает билет утерянным
// POST /api/v1/tickets/{id}/lost
func (h *TicketHandler) MarkLost(w http.ResponseWriter, r *http.Request) {
	id, err := getIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	closed, err := h.ticketService.MarkLost(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to mark ticket lost", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"ticket_id":      id,
		"status":         domain.TicketStatusLost,
		"closed_session": closed,
	})
}

func ticketCallerAndID(w http.ResponseWriter, r *http.Request) (*domain.Caller, int64, bool) {
	id, err := getIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return nil, 0, false
	}

	caller, ok := callerFrom(w, r)
	if !ok {
		return nil, 0, false
	}
	return caller, id, true
}
