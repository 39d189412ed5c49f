package cached

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/pkg/redis"
)

const availabilityCachePrefix = "availability:"

// AvailabilityCache хранит снимки доступности секций для отображения.
// Въезд никогда не читает этот кэш: свободные места считаются в транзакции.
type AvailabilityCache struct {
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewAvailabilityCache создает кэш доступности секций
func NewAvailabilityCache(cache Cache, ttl time.Duration, logger logger.Logger) *AvailabilityCache {
	return &AvailabilityCache{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func availabilityCacheKey(sectionID int64) string {
	return fmt.Sprintf("%s%d", availabilityCachePrefix, sectionID)
}

// Get возвращает закэшированный снимок; false - промах или кэш выключен
func (c *AvailabilityCache) Get(ctx context.Context, sectionID int64) (domain.Availability, bool) {
	if c.cache == nil {
		return domain.Availability{}, false
	}

	var availability domain.Availability
	if err := c.cache.GetJSON(ctx, availabilityCacheKey(sectionID), &availability); err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn("Availability cache read failed", map[string]interface{}{
				"section_id": sectionID,
				"error":      err.Error(),
			})
		}
		return domain.Availability{}, false
	}
	return availability, true
}

// Set сохраняет снимок (ошибка записи не критична)
func (c *AvailabilityCache) Set(ctx context.Context, availability domain.Availability) {
	if c.cache == nil {
		return
	}

	if err := c.cache.SetJSON(ctx, availabilityCacheKey(availability.SectionID), availability, c.ttl); err != nil {
		c.logger.Warn("Availability cache write failed", map[string]interface{}{
			"section_id": availability.SectionID,
			"error":      err.Error(),
		})
	}
}

// Invalidate сбрасывает снимок секции
func (c *AvailabilityCache) Invalidate(ctx context.Context, sectionID int64) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Del(ctx, availabilityCacheKey(sectionID))
}

// InvalidateAll сбрасывает снимки всех секций (после очистки броней)
func (c *AvailabilityCache) InvalidateAll(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.DelByPattern(ctx, availabilityCachePrefix+"*")
}
