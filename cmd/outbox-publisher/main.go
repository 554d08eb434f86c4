package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/naijamall/naijamall-backend/internal/wiring"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/registry"
	"github.com/naijamall/naijamall-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := wiring.Boot(ctx, serviceName)
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "outbox publisher failed to start", err)
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

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(ctx, "event registry misconfigured", err)
		return err
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "pubsub unavailable", err)
		return err
	}
	rt.OnClose("pubsub", client.Close)

	service, err := NewService(ServiceParams{
		Config:      cfg,
		Logger:      logg,
		DB:          rt.DB,
		PubSub:      client,
		Repository:  outbox.NewRepository(rt.DB.DB()),
		Registry:    events,
		DeadLetters: outbox.NewDLQRepository(rt.DB.DB()),
		Metrics:     metrics.NewOutboxMetrics(rt.Metrics),
	})
	if err != nil {
		logg.Error(ctx, "outbox publisher misconfigured", err)
		return err
	}

	rt.ServeMetrics(ctx)
	logg.Info(ctx, "outbox publisher running")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "outbox publisher drained")
	return nil
}
