package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/section"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SectionService определяет интерфейс сервиса секций
type SectionService interface {
	Create(ctx context.Context, req *section.CreateSectionRequest) (*domain.Section, error)
	Update(ctx context.Context, id int64, req *section.UpdateSectionRequest) (*domain.Section, error)
	List(ctx context.Context, caller *domain.Caller) ([]*domain.Section, error)
	Get(ctx context.Context, caller *domain.Caller, id int64) (*domain.Section, error)
	Availability(ctx context.Context, caller *domain.Caller, id int64) (domain.Availability, error)
	ReservedSlots(ctx context.Context, caller *domain.Caller, id int64) ([]*domain.Reservation, error)
	Report(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) (*domain.SectionReport, error)
	ExportSessions(ctx context.Context, caller *domain.Caller, id int64, from, to time.Time) ([]byte, error)
}

// SectionHandler обрабатывает запросы по секциям
type SectionHandler struct {
	sectionService SectionService
	logger         logger.Logger
}

// NewSectionHandler создает новый handler
func NewSectionHandler(sectionService SectionService, logger logger.Logger) *SectionHandler {
	return &SectionHandler{
		sectionService: sectionService,
		logger:         logger,
	}
}

// CreateSection создает секцию
// POST /api/v1/sections
func (h *SectionHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req section.CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.sectionService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to create section", err)
		return
	}

	respondData(w, http.StatusCreated, s)
}

// UpdateSection меняет имя или вместимость секции
// PATCH /api/v1/sections/{id}
func (h *SectionHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := getIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid section ID")
		return
	}

	var req section.UpdateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.sectionService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update section", err)
		return
	}

	respondData(w, http.StatusOK, s)
}

// ListSections возвращает секции, доступные вызывающему
// GET /api/v1/sections
func (h *SectionHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	sections, err := h.sectionService.List(r.Context(), caller)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list sections", err)
		return
	}

	respondData(w, http.StatusOK, sections)
}

// GetSection возвращает секцию
// GET /api/v1/sections/{id}
func (h *SectionHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	s, err := h.sectionService.Get(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to get section", err)
		return
	}

	respondData(w, http.StatusOK, s)
}

// GetAvailability возвращает число свободных мест
// GET /api/v1/sections/{id}/availability
func (h *SectionHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	a, err := h.sectionService.Availability(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to get availability", err)
		return
	}

	respondData(w, http.StatusOK, a)
}

// GetReservedSlots возвращает закрепленные места секции
// GET /api/v1/sections/{id}/reserved-slots
func (h *SectionHandler) GetReservedSlots(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	reservations, err := h.sectionService.ReservedSlots(r.Context(), caller, id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to get reserved slots", err)
		return
	}

	respondData(w, http.StatusOK, reservations)
}

// GetReport возвращает выручку секции за период
// GET /api/v1/sections/{id}/report?from=...&to=...
func (h *SectionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	from, to, ok := periodFrom(w, r)
	if !ok {
		return
	}

	report, err := h.sectionService.Report(r.Context(), caller, id, from, to)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to build report", err)
		return
	}

	respondData(w, http.StatusOK, report)
}

// ExportSessions отдает сессии секции в виде XLSX файла
// GET /api/v1/sections/{id}/export?from=...&to=...
func (h *SectionHandler) ExportSessions(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	from, to, ok := periodFrom(w, r)
	if !ok {
		return
	}

	file, err := h.sectionService.ExportSessions(r.Context(), caller, id, from, to)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to export sessions", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="section-%d-sessions.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file); err != nil {
		h.logger.Warn("Failed to write export", map[string]interface{}{
			"section_id": id,
			"error":      err.Error(),
		})
	}
}

func (h *SectionHandler) callerAndID(w http.ResponseWriter, r *http.Request) (*domain.Caller, int64, bool) {
	id, err := getIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid section ID")
		return nil, 0, false
	}

	caller, ok := callerFrom(w, r)
	if !ok {
		return nil, 0, false
	}
	return caller, id, true
}

// periodFrom разбирает параметры from и to; пустые значения оставляет сервису
func periodFrom(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := getTimeQuery(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' parameter, expected RFC3339")
		return time.Time{}, time.Time{}, false
	}
	to, err := getTimeQuery(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' parameter, expected RFC3339")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
