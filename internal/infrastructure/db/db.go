package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hls-downloader/internal/pkg/config"
	"hls-downloader/migrations"
)

// Open connects to the configured database and brings the schema up to date.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var (
		database *gorm.DB
		err      error
	)
	switch cfg.Driver {
	case "postgres":
		database, err = NewPostgresDB(cfg)
	default:
		database, err = NewSQLiteDB(cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigration {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("sql.DB alınamadı: %w", err)
		}
		if err := migrations.Run(ctx, sqlDB, cfg.Driver); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("goose migrations applied", zap.String("driver", cfg.Driver))
		return database, nil
	}

	if err := AutoMigrate(database); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}
	log.Info("database ready", zap.String("driver", cfg.Driver))
	return database, nil
}

func NewPostgresDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB bağlantısı başarısız: %w", err)
	}
	return database, nil
}

// NewSQLiteDB opens (creating if needed) a SQLite file. Writes are serialised
// through a single connection.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	dsn := path + "?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite açılamadı %s: %w", path, err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return database, nil
}
