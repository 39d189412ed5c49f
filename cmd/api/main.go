package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	deliveryHTTP "github.com/frontandrew/parking/internal/delivery/http"
	"github.com/frontandrew/parking/internal/pkg/config"
	"github.com/frontandrew/parking/internal/pkg/database"
	"github.com/frontandrew/parking/internal/pkg/events"
	"github.com/frontandrew/parking/internal/pkg/jwt"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/pkg/redis"
	"github.com/frontandrew/parking/internal/repository/cached"
	"github.com/frontandrew/parking/internal/repository/postgres"
	"github.com/frontandrew/parking/internal/usecase/fee"
	"github.com/frontandrew/parking/internal/usecase/parking"
	"github.com/frontandrew/parking/internal/usecase/section"
	"github.com/frontandrew/parking/internal/usecase/sweep"
	"github.com/frontandrew/parking/internal/usecase/ticket"
	"github.com/frontandrew/parking/internal/usecase/vehicle"
	"github.com/frontandrew/parking/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// =========================================================================
	// Загрузка конфигурации
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Инициализация logger
	// =========================================================================

	log := logger.New(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.Output)
	log.Info("Starting PARKING API server", map[string]interface{}{
		"version":  "1.0.0",
		"timezone": cfg.Parking.Timezone,
	})

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Подключение к PostgreSQL и миграции
	// =========================================================================

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, &cfg.Database); err != nil {
			log.Fatal("Failed to apply migrations", map[string]interface{}{
				"error": err.Error(),
			})
		}
		log.Info("Database migrations applied")
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer database.Close(db)

	log.Info("Connected to PostgreSQL", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	store := postgres.NewStore(db, cfg.Database.TxTimeout)

	// =========================================================================
	// Подключение к Redis (необязательно)
	// =========================================================================

	// nil означает, что кэш выключен
	var cache cached.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis is not available, caching disabled", map[string]interface{}{
				"error":   err.Error(),
				"address": cfg.Redis.Address(),
			})
		} else {
			defer redisClient.Close()
			cache = redisClient
			log.Info("Connected to Redis", map[string]interface{}{
				"address": cfg.Redis.Address(),
			})
		}
	}

	prices := cached.NewPriceRepository(store.Repositories().Prices, cache, cfg.Redis.PriceTTL, log)
	availability := cached.NewAvailabilityCache(cache, cfg.Redis.AvailabilityTTL, log)

	// =========================================================================
	// Публикация событий (RabbitMQ)
	// =========================================================================

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Broker.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			log.Warn("RabbitMQ is not available, events disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			publisher = amqpPublisher
			log.Info("Connected to RabbitMQ", map[string]interface{}{
				"exchange": cfg.Broker.Exchange,
			})
		}
	}
	defer publisher.Close()

	// =========================================================================
	// Создание use case services
	// =========================================================================

	fees := fee.NewCalculator(prices, cfg.Parking.Location(), log)
	vehicleService := vehicle.NewService(store, log)
	parkingService := parking.NewService(store, vehicleService, fees, availability, publisher, log)
	ticketService := ticket.NewService(store, prices, vehicleService, fees, availability, log)
	sectionService := section.NewService(store, availability, cfg.Parking.Location(), log)
	sweepService := sweep.NewService(store, availability, publisher, log)

	log.Info("Use case services initialized")

	// =========================================================================
	// Создание HTTP handlers и router
	// =========================================================================

	tokenService := jwt.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)

	router := deliveryHTTP.NewRouter(
		deliveryHTTP.NewParkingHandler(parkingService, log),
		deliveryHTTP.NewSectionHandler(sectionService, log),
		deliveryHTTP.NewTicketHandler(ticketService, log),
		deliveryHTTP.NewPricingHandler(ticketService, log),
		deliveryHTTP.NewAdminHandler(sweepService, log),
		tokenService,
		cfg,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// =========================================================================
	// Запуск сервера и воркера очистки
	// =========================================================================

	sweepWorker := worker.NewSweepWorker(sweepService, cfg.Parking.SweepInterval, cfg.Parking.SweepOnStart, log)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API server listening", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweepWorker.Start(gCtx)
	})

	// =========================================================================
	// Graceful shutdown
	// =========================================================================

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	log.Info("Server stopped gracefully")
}
