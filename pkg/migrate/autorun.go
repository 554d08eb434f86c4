package migrate

import (
	"context"
	"fmt"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/logger"
)

// OnBoot brings a dev database up to date when NAIJAMALL_AUTO_MIGRATE is set. Every other
// environment migrates through cmd/migrate before rollout, so this is a no-op there.
func OnBoot(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	switch {
	case !cfg.App.IsDev(), !cfg.FeatureFlags.AutoMigrate:
		return nil
	case cfg.DB.Driver == "sqlite":
		// goose files are postgres DDL
		logg.Warn(ctx, "auto-migrate skipped for sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	runner, err := NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return runner.Up(logg.WithField(ctx, "trigger", "boot"))
}
