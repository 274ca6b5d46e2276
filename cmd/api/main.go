package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platterly/platterly-backend/api/controllers/webhooks"
	"github.com/platterly/platterly-backend/api/routes"
	"github.com/platterly/platterly-backend/internal/activeorders"
	"github.com/platterly/platterly-backend/internal/dispatch"
	"github.com/platterly/platterly-backend/internal/identity"
	"github.com/platterly/platterly-backend/internal/notify"
	"github.com/platterly/platterly-backend/internal/orders"
	"github.com/platterly/platterly-backend/internal/reconcile"
	"github.com/platterly/platterly-backend/internal/splitpay"
	"github.com/platterly/platterly-backend/pkg/config"
	"github.com/platterly/platterly-backend/pkg/db"
	"github.com/platterly/platterly-backend/pkg/env"
	"github.com/platterly/platterly-backend/pkg/gateway"
	"github.com/platterly/platterly-backend/pkg/logger"
	"github.com/platterly/platterly-backend/pkg/metrics"
	"github.com/platterly/platterly-backend/pkg/migrate"
	"github.com/platterly/platterly-backend/pkg/pubsub"
	"github.com/platterly/platterly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.MerchantID,
		cfg.Gateway.WebhookSecret,
		gateway.WithTimeout(cfg.Gateway.RequestTimeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	notifier := notify.NewNotifier(nil, logg)
	if cfg.GCP.ProjectID != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub client", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		notifier = notify.NewNotifier(psClient.NotificationPublisher(), logg)
	} else {
		logg.Warn(context.Background(), "pubsub project not configured, status notifications disabled")
	}

	reconcileMetrics := metrics.NewReconcileMetrics(prometheus.DefaultRegisterer)

	gdb := dbClient.DB()
	orderRepo := orders.NewRepository(gdb)
	userRepo := identity.NewUserRepository(gdb)
	guestRepo := identity.NewGuestRepository(gdb)
	statsRepo := identity.NewCustomerStatsRepository(gdb)
	courierRepo := dispatch.NewCourierRepository(gdb)
	businessRepo := dispatch.NewBusinessRepository(gdb)
	addonRepo := reconcile.NewAddonRequestRepository(gdb)
	refundRepo := reconcile.NewRefundRecordRepository(gdb)
	sessionRepo := splitpay.NewSessionRepository(gdb)

	dispatchService, err := dispatch.NewService(dispatch.ServiceParams{
		Couriers:      courierRepo,
		Businesses:    businessRepo,
		Orders:        orderRepo,
		Tx:            dbClient,
		SignalTimeout: cfg.Dispatch.SignalTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:         orderRepo,
		Tx:           dbClient,
		CourierStats: dispatchService,
		Notifier:     notifier,
		Metrics:      reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	identityService, err := identity.NewService(identity.ServiceParams{
		Users:           userRepo,
		Guests:          guestRepo,
		Stats:           statsRepo,
		Orders:          orderRepo,
		Tx:              dbClient,
		Log:             logg,
		TrackingBaseURL: cfg.Tracking.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	activeOrderService, err := activeorders.NewService(activeorders.ServiceParams{
		Orders: orderRepo,
		Users:  userRepo,
		Guests: guestRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create active order service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(reconcile.ServiceParams{
		Orders:       orderRepo,
		Addons:       addonRepo,
		Refunds:      refundRepo,
		Gateway:      gatewayClient,
		Checkout:     gatewayClient,
		Tx:           dbClient,
		Notifier:     notifier,
		Metrics:      reconcileMetrics,
		Log:          logg,
		RefundWindow: cfg.Refunds.Window,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	splitService, err := splitpay.NewService(splitpay.ServiceParams{
		Sessions: sessionRepo,
		Orders:   orderRepo,
		Gateway:  gatewayClient,
		Tx:       dbClient,
		Log:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create split payment service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Log:           logg,
			DB:            dbClient,
			Redis:         redisClient,
			Identity:      identityService,
			Orders:        orderService,
			ActiveOrders:  activeOrderService,
			Dispatch:      dispatchService,
			Reconcile:     reconcileService,
			Split:         splitService,
			SplitWebhooks: splitpay.NewWebhookAdapter(splitService),
			Gateway:       gatewayClient,
			WebhookGuard:  webhooks.NewEventGuard(redisClient),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
