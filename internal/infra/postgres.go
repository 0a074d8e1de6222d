package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"luxscaler/internal/config"
	"luxscaler/internal/models/db_models"
)

// PrivilegedDB is the elevated-privilege connection (service role). It
// bypasses per-user row rules, so only server-side repositories accept it.
// The zero value is unusable; build it with OpenPrivileged or WrapPrivileged.
type PrivilegedDB struct {
	db *gorm.DB
}

// Conn returns the underlying handle scoped to ctx.
func (p *PrivilegedDB) Conn(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

// WrapPrivileged marks an existing handle as privileged. Callers must only
// pass handles opened with service-role credentials.
func WrapPrivileged(db *gorm.DB) *PrivilegedDB {
	return &PrivilegedDB{db: db}
}

func InitPostgresql(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := open(cfg.Database.URL, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect app database: %w", err)
	}
	return db, nil
}

func OpenPrivileged(cfg *config.Config, log *zap.Logger) (*PrivilegedDB, error) {
	if cfg.Database.ServiceRoleURL == cfg.Database.URL {
		log.Warn("POSTGRES_SERVICE_ROLE_URL not set, privileged handle shares the app credentials")
	}
	db, err := open(cfg.Database.ServiceRoleURL, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect privileged database: %w", err)
	}
	return &PrivilegedDB{db: db}, nil
}

func open(dsn string, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		log.Error("Error connecting to database", zap.Error(err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(15 * time.Minute)

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(p *PrivilegedDB) error {
	return p.db.AutoMigrate(
		&db_models.Profile{},
		&db_models.TokenTransaction{},
		&db_models.WebhookEvent{},
		&db_models.CreditPack{},
		&db_models.WaitlistEntry{},
		&db_models.Generation{},
		&db_models.RecoveryToken{},
	)
}

func ClosePostgresql(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("Error getting database instance", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("Error closing database connection", zap.Error(err))
	} else {
		log.Info("PostgreSQL database connection closed")
	}
}

func (p *PrivilegedDB) Close(log *zap.Logger) {
	ClosePostgresql(p.db, log)
}
