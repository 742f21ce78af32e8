package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

// MaybeRunDev prepares the schema on process start. sqlite always gets the
// model schema plus reference data; postgres runs the embedded goose
// migrations only in dev with KARDEX_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "applying sqlite schema")
		return AutoMigrate(ctx, client.DB())
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	migrator, err := NewMigrator(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	if err := migrator.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "dev schema migrated")
	return nil
}
