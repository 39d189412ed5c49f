package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/sweep"
)

// SweepService запускает очистку просроченных броней
type SweepService interface {
	Run(ctx context.Context) (*sweep.Result, error)
}

// AdminHandler обрабатывает служебные запросы администратора
type AdminHandler struct {
	sweepService SweepService
	logger       logger.Logger
}

// NewAdminHandler создает новый handler
func NewAdminHandler(sweepService SweepService, logger logger.Logger) *AdminHandler {
	return &AdminHandler{
		sweepService: sweepService,
		logger:       logger,
	}
}

// RunSweep выполняет проход очистки немедленно
// POST /api/v1/admin/sweep
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweepService.Run(r.Context())
	if err != nil && result == nil {
		respondServiceError(w, h.logger, "Failed to run sweep", err)
		return
	}

	// Частичные ошибки: часть броней удалена, результат все равно отдаем
	if err != nil {
		h.logger.Warn("Sweep finished with errors", map[string]interface{}{
			"error": err.Error(),
		})
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    result,
			"error":   err.Error(),
		})
		return
	}

	respondData(w, http.StatusOK, result)
}
