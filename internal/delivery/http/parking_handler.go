package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/parking"
)

// ParkingService определяет интерфейс сервиса въезда и выезда
type ParkingService interface {
	CheckIn(ctx context.Context, caller *domain.Caller, req *parking.CheckInRequest) (*parking.CheckInResponse, error)
	CheckOut(ctx context.Context, caller *domain.Caller, req *parking.CheckOutRequest) (*parking.CheckOutResponse, error)
}

// ParkingHandler обрабатывает запросы шлагбаумов
type ParkingHandler struct {
	parkingService ParkingService
	logger         logger.Logger
}

// NewParkingHandler создает новый handler
func NewParkingHandler(parkingService ParkingService, logger logger.Logger) *ParkingHandler {
	return &ParkingHandler{
		parkingService: parkingService,
		logger:         logger,
	}
}

// CheckIn регистрирует въезд
// POST /api/v1/parking/check-in
func (h *ParkingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req parking.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	resp, err := h.parkingService.CheckIn(r.Context(), caller, &req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to check in", err)
		return
	}

	respondData(w, http.StatusCreated, resp)
}

// CheckOut регистрирует выезд и возвращает стоимость
// POST /api/v1/parking/check-out
func (h *ParkingHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req parking.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	resp, err := h.parkingService.CheckOut(r.Context(), caller, &req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to check out", err)
		return
	}

	respondData(w, http.StatusOK, resp)
}
