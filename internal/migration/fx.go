package migration

import (
	"context"
	"fmt"

	"github.com/smallbiznis/quoteshare/internal/config"
	"github.com/smallbiznis/quoteshare/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return applySchema(ctx, conn, cfg, log.Named("migration"))
			},
		})
	}),
)

func applySchema(ctx context.Context, conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	switch cfg.DBType {
	case db.DialectPostgres:
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
	case db.DialectSQLite:
		if err := ApplySQLiteSchema(ctx, conn); err != nil {
			return err
		}
	default:
		return fmt.Errorf("no migrations for database type %q", cfg.DBType)
	}
	log.Info("schema up to date", zap.String("type", cfg.DBType))
	return nil
}
