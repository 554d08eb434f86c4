package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/naijamall/naijamall-backend/internal/cron"
	"github.com/naijamall/naijamall-backend/internal/wiring"
	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
	"github.com/naijamall/naijamall-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run one cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := wiring.Boot(ctx, serviceName)
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "cron worker failed to start", err)
		os.Exit(1)
	}
	err = run(rt.Context(ctx), rt, *once)
	rt.Close(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, rt *wiring.Runtime, once bool) error {
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
	paymentMetrics := metrics.NewPaymentMetrics(rt.Metrics)
	services, err := wiring.NewServices(wiring.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       rt.DB,
		Paystack: paystackClient,
		Metrics:  paymentMetrics,
	})
	if err != nil {
		logg.Error(ctx, "wire services", err)
		return err
	}
	jobs, err := buildRegistry(cfg, logg, rt.DB, services, paymentMetrics, metrics.NewOutboxMetrics(rt.Metrics))
	if err != nil {
		logg.Error(ctx, "cron jobs misconfigured", err)
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(ctx, "cron lock misconfigured", err)
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(rt.Metrics),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "cron service misconfigured", err)
		return err
	}

	if once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			return err
		}
		return nil
	}
	rt.ServeMetrics(ctx)
	logg.Info(ctx, "cron worker running")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "cron worker stopped")
	return nil
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, services *wiring.Services, paymentMetrics *metrics.PaymentMetrics, outboxMetrics *metrics.OutboxMetrics) (*cron.Registry, error) {
	reconcile, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:   logg,
		Reader:   services.PaymentsRepo,
		Verifier: services.Payments,
		Metrics:  paymentMetrics,
		After:    cfg.Cron.PaymentReconcileAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("payment reconcile job: %w", err)
	}
	aging, err := cron.NewEscrowAgingJob(cron.EscrowAgingJobParams{
		Logger:  logg,
		DB:      dbClient,
		Reader:  services.PaymentsRepo,
		Outbox:  services.Outbox,
		Metrics: paymentMetrics,
		After:   cfg.Cron.StaleEscrowAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("escrow aging job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: services.OutboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	deadLetters, err := cron.NewDeadLetterWatchJob(cron.DeadLetterWatchJobParams{
		Logger:  logg,
		Counter: outbox.NewDLQRepository(dbClient.DB()),
		Metrics: outboxMetrics,
		Window:  cfg.Cron.DeadLetterWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("dead-letter watch job: %w", err)
	}
	return cron.NewRegistry(reconcile, aging, retention, deadLetters), nil
}

// lockKey scopes the cron lock to one environment.
func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", serviceName, env)
}
