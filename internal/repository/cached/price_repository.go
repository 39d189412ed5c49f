package cached

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/pkg/redis"
	"github.com/frontandrew/parking/internal/repository"
)

const priceCachePrefix = "price:"

// PriceRepository добавляет кэширование к репозиторию тарифов
type PriceRepository struct {
	repo   repository.PriceRepository
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewPriceRepository создает новый кэшируемый репозиторий тарифов
func NewPriceRepository(repo repository.PriceRepository, cache Cache, ttl time.Duration, logger logger.Logger) *PriceRepository {
	return &PriceRepository{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func priceCacheKey(ticketType domain.TicketType, vehicleType domain.VehicleType) string {
	return fmt.Sprintf("%s%s:%s", priceCachePrefix, ticketType, vehicleType)
}

// Get возвращает тариф (с кэшированием)
func (r *PriceRepository) Get(ctx context.Context, ticketType domain.TicketType, vehicleType domain.VehicleType) (*domain.TicketPrice, error) {
	if r.cache == nil {
		return r.repo.Get(ctx, ticketType, vehicleType)
	}

	cacheKey := priceCacheKey(ticketType, vehicleType)

	// 1. Проверяем кэш
	var cached domain.TicketPrice
	err := r.cache.GetJSON(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		// Ошибка кэша не мешает чтению из БД
		r.logger.Warn("Price cache read failed", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
	}

	// 2. Cache miss - идем в БД
	price, err := r.repo.Get(ctx, ticketType, vehicleType)
	if err != nil {
		return nil, err
	}

	// 3. Сохраняем результат в кэш
	if err := r.cache.SetJSON(ctx, cacheKey, price, r.ttl); err != nil {
		r.logger.Warn("Price cache write failed", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
	}

	return price, nil
}

// List возвращает все тарифы. Список нужен только админке, не кэшируем.
func (r *PriceRepository) List(ctx context.Context) ([]*domain.TicketPrice, error) {
	return r.repo.List(ctx)
}

// Upsert сохраняет тариф и инвалидирует кэш
func (r *PriceRepository) Upsert(ctx context.Context, price *domain.TicketPrice) error {
	if err := r.repo.Upsert(ctx, price); err != nil {
		return err
	}

	if r.cache == nil {
		return nil
	}

	if err := r.cache.Del(ctx, priceCacheKey(price.TicketType, price.VehicleType)); err != nil {
		r.logger.Error("Failed to invalidate price cache", map[string]interface{}{
			"ticket_type":  price.TicketType,
			"vehicle_type": price.VehicleType,
			"error":        err.Error(),
		})
		return fmt.Errorf("failed to invalidate price cache: %w", err)
	}

	return nil
}
