package database

import (
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	dbClient *gorm.DB
	mu       sync.RWMutex
)

// InitDb opens the relational store the authorization gate reads from.
func InitDb(cfg *config.Config, log *logger.Logger) error {
	db, err := Open(cfg.Postgres, log)
	if err != nil {
		return err
	}

	mu.Lock()
	dbClient = db
	mu.Unlock()

	return nil
}

func Open(cfg config.PostgresConfig, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		dialector = postgres.Open(fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName, cfg.SSLMode,
		))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log.Log),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	return db, nil
}

func GetDb() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return dbClient
}

func CloseDb() {
	mu.Lock()
	defer mu.Unlock()

	if dbClient == nil {
		return
	}
	if sqlDB, err := dbClient.DB(); err == nil {
		_ = sqlDB.Close()
	}
	dbClient = nil
}
