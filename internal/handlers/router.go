package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/middleware"
	"github.com/ukydev/fleet-rental/internal/models"
)

// SetupRouter builds the HTTP routes and middleware of the rental API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(h.logger, h.metrics))
	r.Use(middleware.Recoverer(h.logger))

	r.Get("/health", h.Health)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	admin := h.auth.RequireRole(models.RoleAdmin)
	manager := h.auth.RequireRole(models.RoleManager)
	staff := h.auth.RequireStaff()

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Authenticate)
		if h.limiter != nil {
			r.Use(middleware.RateLimit(h.limiter, h.logger))
		}

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/", h.ListReservations)
			r.Post("/availability", h.CheckAvailability)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetReservation)
				r.Patch("/", h.UpdateReservation)
				r.Delete("/", h.DeleteReservation)
				r.Patch("/status", h.UpdateReservationStatus)
				r.With(staff).Post("/payments", h.ApplyPayment)
			})
		})

		r.Get("/reports", h.Report)
		r.Get("/reports/{type}", h.Report)
		r.Get("/dashboards", h.Dashboard)

		r.Route("/branches", func(r chi.Router) {
			r.With(staff).Get("/", h.ListBranches)
			r.With(staff).Get("/{id}", h.GetBranch)
			r.With(admin).Post("/", h.CreateBranch)
			r.With(admin).Put("/{id}", h.UpdateBranch)
			r.With(admin).Delete("/{id}", h.DeleteBranch)
		})
		r.Route("/vehicle-models", func(r chi.Router) {
			r.With(staff).Get("/", h.ListVehicleModels)
			r.With(staff).Get("/{id}", h.GetVehicleModel)
			r.With(admin).Post("/", h.CreateVehicleModel)
			r.With(admin).Put("/{id}", h.UpdateVehicleModel)
			r.With(admin).Delete("/{id}", h.DeleteVehicleModel)
		})
		r.Route("/vehicles", func(r chi.Router) {
			r.With(staff).Get("/", h.ListVehicles)
			r.With(staff).Get("/{id}", h.GetVehicle)
			r.With(admin).Post("/", h.CreateVehicle)
			r.With(admin).Put("/{id}", h.UpdateVehicle)
			r.With(admin).Delete("/{id}", h.DeleteVehicle)
		})
		r.Route("/rate-plans", func(r chi.Router) {
			r.With(staff).Get("/", h.ListRatePlans)
			r.With(staff).Get("/{id}", h.GetRatePlan)
			r.With(manager).Post("/", h.CreateRatePlan)
			r.With(manager).Put("/{id}", h.UpdateRatePlan)
			r.With(manager).Delete("/{id}", h.DeleteRatePlan)
		})
		r.Route("/promo-codes", func(r chi.Router) {
			r.With(staff).Get("/", h.ListPromoCodes)
			r.With(staff).Get("/{id}", h.GetPromoCode)
			r.With(manager).Post("/", h.CreatePromoCode)
			r.With(manager).Put("/{id}", h.UpdatePromoCode)
			r.With(manager).Delete("/{id}", h.DeletePromoCode)
		})
		r.Route("/service-orders", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", h.ListServiceOrders)
			r.Get("/{id}", h.GetServiceOrder)
			r.Post("/", h.CreateServiceOrder)
			r.Put("/{id}", h.UpdateServiceOrder)
			r.Delete("/{id}", h.DeleteServiceOrder)
		})
		r.Route("/incidents", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", h.ListIncidents)
			r.Get("/{id}", h.GetIncident)
			r.Post("/", h.CreateIncident)
			r.Put("/{id}", h.UpdateIncident)
			r.Delete("/{id}", h.DeleteIncident)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.ListUsers)
			r.Get("/{id}", h.GetUser)
			r.Post("/", h.CreateUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.fail(w, r, errs.NotFound("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		e := errs.Validation("method %s not allowed", r.Method)
		e.Status = http.StatusMethodNotAllowed
		h.fail(w, r, e)
	})

	return r
}

// Health handles GET /health. It reports 503 when the store does not answer.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, Envelope{Message: "store unavailable", Data: map[string]string{"status": "degraded"}})
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
