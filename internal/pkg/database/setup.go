package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/OrgPilot/app/models"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/config"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Open connects to MySQL, retrying while the server comes up.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if env.IsDev() {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormCfg)
		if err == nil {
			if cfg.AutoMigrate {
				if err = AutoMigrate(db); err != nil {
					return nil, err
				}
			}
			return db, nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect database: %w", err)
}

// AutoMigrate creates or updates the application tables from the models.
// Production schemas are managed by cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.WebhookEvent{}, &models.Invitation{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(db *gorm.DB) error {
	if db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
