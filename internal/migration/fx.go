package migration

import (
	"github.com/smallbiznis/stripesync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the configured store on start-up. A nil conn means the
// store is not configured and migrations are skipped.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if conn == nil {
		log.Warn("database not configured; skipping migrations")
		return nil
	}
	if !cfg.DBMigrateOnStart {
		log.Info("migrations disabled by DATABASE_MIGRATE_ON_START")
		return nil
	}

	if cfg.DBType != config.DBTypePostgres {
		log.Info("applying gorm auto-migrations", zap.String("dialect", cfg.DBType))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying embedded migrations")
	return RunMigrations(sqlDB)
}
