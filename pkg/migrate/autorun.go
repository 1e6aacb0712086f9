package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/logger"
)

// MaybeRunDev prepares the schema on boot. A sqlite database always gets the
// embedded sqlite schema. Postgres gets the goose migrations only in dev with
// LUDI_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlite := strings.EqualFold(cfg.DB.Driver, db.DriverSQLite)
	if !sqlite && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	if sqlite {
		logg.Info(logg.WithField(ctx, "source", "sqlite"), "applying sqlite schema")
		return ApplySQLite(ctx, sqlDB)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "applying migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrations applied")
	return nil
}
