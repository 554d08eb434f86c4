package wiring

import (
	"context"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/naijamall/naijamall-backend/api"
	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/instance"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/migrate"
)

// Runtime is what every binary opens before its own dependencies: config, the service logger, the
// database and a metrics registry. Close releases everything registered with OnClose in reverse.
type Runtime struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Metrics *prometheus.Registry

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Boot loads .env and config for service, connects the database and applies dev migrations. On
// error the partially opened runtime is already closed.
func Boot(ctx context.Context, service string) (*Runtime, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
		Metrics: metrics.NewRegistry(),
	}
	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.OnBoot(ctx, cfg, rt.Logger, rt.DB); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs the registered closers newest first and logs any that fail.
func (rt *Runtime) Close(ctx context.Context) {
	var errs error
	for _, c := range slices.Backward(rt.closers) {
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	if errs != nil {
		rt.Logger.Error(ctx, "shutdown incomplete", errs)
	}
}

// Context tags ctx with the fields every log line of this process should carry.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Config.Service.Kind,
		"instance":    instance.ID(),
	})
}

// ServeMetrics exposes the registry on NAIJAMALL_METRICS_ADDR until ctx ends. It does nothing when
// the address is unset.
func (rt *Runtime) ServeMetrics(ctx context.Context) {
	addr := rt.Config.Service.MetricsAddr
	if addr == "" {
		return
	}
	go func() {
		if err := api.Serve(ctx, api.NewServer(addr, metrics.Handler(rt.Metrics)), rt.Logger); err != nil {
			rt.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
}
