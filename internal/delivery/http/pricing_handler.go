package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/pkg/logger"
	"github.com/frontandrew/parking/internal/usecase/ticket"
	"github.com/shopspring/decimal"
)

// PricingService определяет интерфейс работы с тарифами
type PricingService interface {
	ListPrices(ctx context.Context) ([]*domain.TicketPrice, error)
	SetPrice(ctx context.Context, price *domain.TicketPrice) error
	Quote(ctx context.Context, req *ticket.QuoteRequest) (decimal.Decimal, error)
}

// PricingHandler обрабатывает запросы по тарифам
type PricingHandler struct {
	pricingService PricingService
	logger         logger.Logger
}

// NewPricingHandler создает новый handler
func NewPricingHandler(pricingService PricingService, logger logger.Logger) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// ListPrices возвращает все тарифы
// GET /api/v1/pricing
func (h *PricingHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.pricingService.ListPrices(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list prices", err)
		return
	}

	respondData(w, http.StatusOK, prices)
}

// SetPrice создает или меняет тариф
// PUT /api/v1/pricing
func (h *PricingHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var price domain.TicketPrice
	if err := json.NewDecoder(r.Body).Decode(&price); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.pricingService.SetPrice(r.Context(), &price); err != nil {
		respondServiceError(w, h.logger, "Failed to set price", err)
		return
	}

	respondData(w, http.StatusOK, price)
}

// Quote рассчитывает стоимость интервала
// GET /api/v1/pricing/quote?type=DAILY&vehicle_class=CAR&from=...&to=...
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, to, ok := periodFrom(w, r)
	if !ok {
		return
	}
	if from.IsZero() || to.IsZero() {
		respondError(w, http.StatusBadRequest, "Parameters 'from' and 'to' are required")
		return
	}

	req := &ticket.QuoteRequest{
		TicketType:  domain.TicketType(query.Get("type")),
		VehicleType: domain.VehicleType(query.Get("vehicle_class")),
		From:        from,
		To:          to,
	}

	fee, err := h.pricingService.Quote(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to quote fee", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"type":          req.TicketType,
		"vehicle_class": req.VehicleType,
		"from":          req.From,
		"to":            req.To,
		"fee":           fee,
	})
}
