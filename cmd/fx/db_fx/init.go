package db_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luxscaler/internal/config"
	"luxscaler/internal/infra"
)

var Module = fx.Options(
	fx.Provide(provideDB, providePrivilegedDB),
	fx.Invoke(migrate),
)

func provideDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := infra.InitPostgresql(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			infra.ClosePostgresql(db, log)
			return nil
		},
	})
	return db, nil
}

func providePrivilegedDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*infra.PrivilegedDB, error) {
	db, err := infra.OpenPrivileged(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			db.Close(log)
			return nil
		},
	})
	return db, nil
}

func migrate(cfg *config.Config, db *infra.PrivilegedDB, log *zap.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	log.Info("running database migrations")
	return infra.Migrate(db)
}
