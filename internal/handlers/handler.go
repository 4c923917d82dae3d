// Package handlers exposes the rental API over HTTP.
package handlers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/metrics"
	"github.com/ukydev/fleet-rental/internal/middleware"
	"github.com/ukydev/fleet-rental/internal/reports"
	"github.com/ukydev/fleet-rental/internal/reservation"
)

// Handler serves every API route.
type Handler struct {
	store      db.Store
	engine     *reservation.Engine
	reporter   *reports.Reporter
	auth       *middleware.AuthMiddleware
	limiter    middleware.Limiter
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *logrus.Logger
	production bool
	now        func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request failures.
func WithLogger(l *logrus.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMetrics records requests in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = g
	}
}

// WithRateLimit puts l in front of every /api route.
func WithRateLimit(l middleware.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithProduction hides internal error messages from clients.
func WithProduction(on bool) Option {
	return func(h *Handler) { h.production = on }
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler wires the API onto the engine, the reporter and the store they share.
func NewHandler(store db.Store, engine *reservation.Engine, reporter *reports.Reporter, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		engine:   engine,
		reporter: reporter,
		auth:     auth,
		logger:   logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) clock() time.Time {
	return h.now().UTC()
}
