package worker

import (
	"context"
	"time"

	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/sweep"
)

// Sweeper выполняет один проход очистки броней
type Sweeper interface {
	Run(ctx context.Context) (*sweep.Result, error)
}

// SweepWorker периодически запускает очистку истекших броней
type SweepWorker struct {
	sweeper    Sweeper
	interval   time.Duration
	runOnStart bool
	logger     logger.Logger
}

// NewSweepWorker создает воркер очистки
func NewSweepWorker(sweeper Sweeper, interval time.Duration, runOnStart bool, logger logger.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:    sweeper,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start блокируется до отмены контекста. Ошибка прохода не останавливает воркер.
func (w *SweepWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Sweep worker started", map[string]interface{}{
		"interval": w.interval.String(),
	})

	if w.runOnStart {
		w.runOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Sweep worker stopped")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	result, err := w.sweeper.Run(ctx)
	if err != nil {
		w.logger.Error("Reservation sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if result.Deleted > 0 {
		w.logger.Info("Expired reservations removed", map[string]interface{}{
			"deleted": result.Deleted,
			"skipped": result.Skipped,
		})
	}
}
