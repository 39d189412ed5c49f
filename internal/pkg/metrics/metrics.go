package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "parking"

var (
	checkIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_ins_total",
		Help:      "Check-in attempts by result.",
	}, []string{"result"})

	checkOuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_outs_total",
		Help:      "Check-out attempts by result.",
	}, []string{"result"})

	fees = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fee_amount",
		Help:      "Fees charged at check-out.",
		Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
	}, []string{"ticket_type"})

	sweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expired_reservations_deleted_total",
		Help:      "Reservations removed by the expiry sweep.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheckIn учитывает попытку въезда
func ObserveCheckIn(err error) {
	checkIns.WithLabelValues(Result(err)).Inc()
}

// ObserveCheckOut учитывает попытку выезда и начисленную сумму
func ObserveCheckOut(ticketType domain.TicketType, fee decimal.Decimal, err error) {
	checkOuts.WithLabelValues(Result(err)).Inc()
	if err == nil {
		fees.WithLabelValues(string(ticketType)).Observe(fee.InexactFloat64())
	}
}

// AddSweepDeleted учитывает удаленные брони
func AddSweepDeleted(n int) {
	sweepDeleted.Add(float64(n))
}

// ObserveHTTP учитывает длительность HTTP запроса
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Result возвращает метку результата операции
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSectionFull):
		return "section_full"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrTicketNotAvailable),
		errors.Is(err, domain.ErrTicketNotInUse),
		errors.Is(err, domain.ErrTicketExpired),
		errors.Is(err, domain.ErrPlateMismatch):
		return "rejected"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
