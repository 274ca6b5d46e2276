package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platterly/platterly-backend/api/controllers"
	webhookcontrollers "github.com/platterly/platterly-backend/api/controllers/webhooks"
	"github.com/platterly/platterly-backend/api/middleware"
	"github.com/platterly/platterly-backend/internal/activeorders"
	"github.com/platterly/platterly-backend/internal/dispatch"
	"github.com/platterly/platterly-backend/internal/identity"
	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/internal/reconcile"
	"github.com/platterly/platterly-backend/internal/splitpay"
	"github.com/platterly/platterly-backend/pkg/config"
	"github.com/platterly/platterly-backend/pkg/gateway"
	"github.com/platterly/platterly-backend/pkg/logger"
)

// Deps carries every service the router binds to handlers.
type Deps struct {
	Config        *config.Config
	Log           *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Identity      identity.Service
	Orders        orders.Service
	ActiveOrders  activeorders.Service
	Dispatch      dispatch.Service
	Reconcile     reconcile.Service
	Split         splitpay.Service
	SplitWebhooks *splitpay.WebhookAdapter
	Gateway       *gateway.Client
	WebhookGuard  *webhookcontrollers.EventGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Log

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.Gateway(deps.Reconcile, deps.SplitWebhooks, deps.Gateway, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", controllers.CreateSession(deps.Identity, cfg.JWT, logg))
	})

	// Tracking reads: polled by the consumer UI, authorized by session,
	// capability reference or legacy cookie.
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/active", controllers.ActiveOrders(deps.ActiveOrders, logg))
		r.Get("/{orderID}", controllers.OrderDetail(deps.Orders, logg))
		r.Post("/{orderID}/addons", controllers.RequestAddon(deps.Reconcile, logg))
	})

	// Staff device routes, scoped to one business.
	r.Route("/api/v1/businesses/{businessID}", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.BusinessContext(logg))
		r.Post("/orders/{orderID}/status", controllers.StaffUpdateStatus(deps.Orders, logg))
		r.Post("/orders/{orderID}/refunds", controllers.RequestRefund(deps.Reconcile, logg))
		r.Route("/dispatch", func(r chi.Router) {
			r.Get("/couriers", controllers.DispatchListing(deps.Dispatch, logg))
			r.Post("/orders/{orderID}/assign", controllers.AssignCourier(deps.Dispatch, logg))
		})
	})

	// Courier device routes; the bearer token identifies the courier.
	r.Route("/api/v1/courier", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/location", controllers.CourierLocationPing(deps.Dispatch, logg))
		r.Post("/status", controllers.CourierStatusUpdate(deps.Dispatch, logg))
		r.Post("/orders/{orderID}/status", controllers.CourierUpdateStatus(deps.Orders, logg))
	})

	r.Route("/api/v1/split-sessions", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/", controllers.CreateSplitSession(deps.Split, logg))
		r.Get("/{sessionID}", controllers.GetSplitSession(deps.Split, logg))
	})

	return r
}
