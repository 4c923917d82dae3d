// Package metrics holds the Prometheus collectors of the rental service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ukydev/fleet-rental/internal/errs"
)

const namespace = "fleet_rental"

// ResultOK labels a successful operation.
const ResultOK = "ok"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reservationOps *prometheus.CounterVec
	codeRetries    prometheus.Counter
	lockWait       prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		reservationOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_operations_total",
			Help:      "Reservation engine operations by operation and result kind.",
		}, []string{"op", "result"}),
		codeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_code_retries_total",
			Help:      "Reservation code allocations retried after a duplicate.",
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vehicle_lock_wait_seconds",
			Help:      "Time spent waiting for a per-vehicle lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.reservationOps, m.codeRetries, m.lockWait, m.httpRequests, m.httpDuration)
	return m
}

// Result labels err by its error kind.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	return string(errs.KindOf(err))
}

// ObserveOp counts one engine operation.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.reservationOps.WithLabelValues(op, Result(err)).Inc()
}

func (m *Metrics) IncCodeRetry() {
	if m == nil {
		return
	}
	m.codeRetries.Inc()
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
