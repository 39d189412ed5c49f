package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/frontandrew/parking/internal/delivery/http/middleware"
	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// errorStatuses сопоставляет доменные ошибки с HTTP статусами
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrTokenExpired, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},

	{domain.ErrTicketNotFound, http.StatusNotFound},
	{domain.ErrSectionNotFound, http.StatusNotFound},
	{domain.ErrReservationNotFound, http.StatusNotFound},
	{domain.ErrVehicleNotFound, http.StatusNotFound},
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrUserTicketNotFound, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},

	{domain.ErrTicketNotAvailable, http.StatusConflict},
	{domain.ErrTicketNotInUse, http.StatusConflict},
	{domain.ErrTicketInUse, http.StatusConflict},
	{domain.ErrInvalidTicketState, http.StatusConflict},
	{domain.ErrSectionFull, http.StatusConflict},
	{domain.ErrSlotAlreadyReserved, http.StatusConflict},
	{domain.ErrAlreadyReserved, http.StatusConflict},
	{domain.ErrSectionAlreadyExists, http.StatusConflict},
	{domain.ErrConflict, http.StatusConflict},

	{domain.ErrTicketExpired, http.StatusUnprocessableEntity},
	{domain.ErrPlateMismatch, http.StatusUnprocessableEntity},

	{domain.ErrInvalidTicketType, http.StatusBadRequest},
	{domain.ErrInvalidTicketData, http.StatusBadRequest},
	{domain.ErrNotReservedTicket, http.StatusBadRequest},
	{domain.ErrInvalidPrice, http.StatusBadRequest},
	{domain.ErrInvalidDateRange, http.StatusBadRequest},
	{domain.ErrInvalidSectionData, http.StatusBadRequest},
	{domain.ErrInvalidSlot, http.StatusBadRequest},
	{domain.ErrInvalidLicensePlate, http.StatusBadRequest},
	{domain.ErrInvalidVehicleType, http.StatusBadRequest},
	{domain.ErrBadRequest, http.StatusBadRequest},

	{domain.ErrTransient, http.StatusServiceUnavailable},

	// Ошибка настройки тарифов, клиент ее исправить не может
	{domain.ErrPriceNotConfigured, http.StatusInternalServerError},
}

// respondJSON отправляет JSON ответ
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondData отправляет успешный ответ с данными
func respondData(w http.ResponseWriter, code int, data interface{}) {
	respondJSON(w, code, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondError отправляет JSON ответ с ошибкой
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusFromError возвращает HTTP статус и текст для ошибки сервиса
func statusFromError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// respondServiceError переводит ошибку сервиса в ответ.
// Неизвестные ошибки логируются и не раскрываются клиенту.
func respondServiceError(w http.ResponseWriter, log logger.Logger, msg string, err error) {
	status, message := statusFromError(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, map[string]interface{}{
			"error": err.Error(),
		})
	}
	respondError(w, status, message)
}

// callerFrom извлекает вызывающего или отвечает 401
func callerFrom(w http.ResponseWriter, r *http.Request) (*domain.Caller, bool) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return caller, true
}

// getIDParam извлекает числовой параметр пути, например /sections/{id}
func getIDParam(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadRequest
	}
	return id, nil
}

// getTimeQuery разбирает необязательный RFC3339 параметр запроса
func getTimeQuery(r *http.Request, param string) (time.Time, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.ErrBadRequest
	}
	return t, nil
}
