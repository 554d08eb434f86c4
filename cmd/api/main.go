package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naijamall/naijamall-backend/api"
	"github.com/naijamall/naijamall-backend/api/routes"
	"github.com/naijamall/naijamall-backend/internal/payments"
	"github.com/naijamall/naijamall-backend/internal/wiring"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
	"github.com/naijamall/naijamall-backend/pkg/redis"
)

const webhookDedupeTTL = 72 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := wiring.Boot(ctx, "api")
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(ctx, "api failed to start", err)
		os.Exit(1)
	}
	err = run(rt.Context(ctx), rt)
	rt.Close(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, rt *wiring.Runtime) error {
	logg, cfg := rt.Logger, rt.Config

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "redis unavailable", err)
		return err
	}
	rt.OnClose("redis", redisClient.Close)

	paystackClient, err := paystack.NewClient(cfg.Paystack)
	if err != nil {
		logg.Error(ctx, "paystack client misconfigured", err)
		return err
	}
	services, err := wiring.NewServices(wiring.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       rt.DB,
		Paystack: paystackClient,
		Metrics:  metrics.NewPaymentMetrics(rt.Metrics),
	})
	if err != nil {
		logg.Error(ctx, "wire services", err)
		return err
	}
	webhooks, err := payments.NewWebhookHandler(paystackClient, redisClient, services.Payments, webhookDedupeTTL, logg)
	if err != nil {
		logg.Error(ctx, "wire paystack webhooks", err)
		return err
	}

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:               rt.DB,
		Redis:            redisClient,
		IdempotencyStore: redisClient,
		RateLimitStore:   redisClient,
		Metrics:          rt.Metrics,
		HTTPMetrics:      metrics.NewHTTPMetrics(rt.Metrics),
		Orders:           services.Orders,
		Payments:         services.Payments,
		Webhooks:         webhooks,
		ShoppingLists:    services.ShoppingLists,
		Deliveries:       services.Deliveries,
		Agents:           services.Agents,
		Support:          services.Support,
		Users:            services.Users,
		Reports:          services.Reports,
	})

	// PORT wins so the container platform can pick it.
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	ctx = logg.WithField(ctx, "addr", ":"+port)
	logg.Info(ctx, "api listening")
	if err := api.Serve(ctx, api.NewServer(":"+port, router), logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "api stopped")
	return nil
}
