package http

import (
	"net/http"

	"github.com/frontandrew/parking/internal/delivery/http/middleware"
	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/config"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router содержит все зависимости для HTTP роутера
type Router struct {
	parkingHandler *ParkingHandler
	sectionHandler *SectionHandler
	ticketHandler  *TicketHandler
	pricingHandler *PricingHandler
	adminHandler   *AdminHandler
	tokens         middleware.TokenValidator
	config         *config.Config
	logger         logger.Logger
}

// NewRouter создает новый HTTP router
func NewRouter(
	parkingHandler *ParkingHandler,
	sectionHandler *SectionHandler,
	ticketHandler *TicketHandler,
	pricingHandler *PricingHandler,
	adminHandler *AdminHandler,
	tokens middleware.TokenValidator,
	config *config.Config,
	logger logger.Logger,
) *Router {
	return &Router{
		parkingHandler: parkingHandler,
		sectionHandler: sectionHandler,
		ticketHandler:  ticketHandler,
		pricingHandler: pricingHandler,
		adminHandler:   adminHandler,
		tokens:         tokens,
		config:         config,
		logger:         logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	if rt.config.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware)
	}
	r.Use(middleware.CORSMiddleware(middleware.CORSConfig{
		AllowedOrigins: rt.config.CORS.AllowedOrigins,
		AllowedMethods: rt.config.CORS.AllowedMethods,
		AllowedHeaders: rt.config.CORS.AllowedHeaders,
	}))

	// Health check endpoint (публичный)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	if rt.config.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// API v1 routes, все требуют токен провайдера идентификации
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.tokens))

		// Шлагбаумы: доступ к секции проверяет сервис
		r.Route("/parking", func(r chi.Router) {
			r.Post("/check-in", rt.parkingHandler.CheckIn)
			r.Post("/check-out", rt.parkingHandler.CheckOut)
		})

		r.Route("/sections", func(r chi.Router) {
			r.Get("/", rt.sectionHandler.ListSections)
			r.Get("/{id}", rt.sectionHandler.GetSection)
			r.Get("/{id}/availability", rt.sectionHandler.GetAvailability)
			r.Get("/{id}/reserved-slots", rt.sectionHandler.GetReservedSlots)
			r.Get("/{id}/report", rt.sectionHandler.GetReport)
			r.Get("/{id}/export", rt.sectionHandler.ExportSessions)

			// Admin only endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Post("/", rt.sectionHandler.CreateSection)
				r.Patch("/{id}", rt.sectionHandler.UpdateSection)
			})
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/{id}", rt.ticketHandler.GetTicket)
			r.Post("/{id}/reserve", rt.ticketHandler.ReserveSlot)
			r.Post("/{id}/cancel", rt.ticketHandler.CancelTicket)

			// Admin only endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Post("/", rt.ticketHandler.IssueTickets)
				r.Post("/{id}/lost", rt.ticketHandler.MarkLost)
			})
		})

		r.Route("/pricing", func(r chi.Router) {
			r.Get("/", rt.pricingHandler.ListPrices)
			r.Get("/quote", rt.pricingHandler.Quote)

			r.With(middleware.RequireRole(domain.RoleAdmin)).Put("/", rt.pricingHandler.SetPrice)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Post("/sweep", rt.adminHandler.RunSweep)
		})
	})

	return r
}
