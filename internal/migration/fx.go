package migration

import (
	"github.com/lumafi/lumafi/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// The embedded migrations are written for postgres. Other dialects
		// (sqlite in tests, mysql) fall back to AutoMigrate at the call site.
		if cfg.DBType != "postgres" {
			log.Named("migration").Info("skipping embedded migrations",
				zap.String("db_type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
