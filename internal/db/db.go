package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitordesk/internal/config"
	"visitordesk/internal/models"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("DB")

const (
	maxRetries = 5
	retryDelay = 5 * time.Second
)

// Connect opens the Postgres pool and migrates the schema, retrying while the
// database is still starting.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	log.Info("Connecting to database %s@%s:%d/%s...", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logger.Warn),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			AllowGlobalUpdate:                        false,
			// Unique violations surface as gorm.ErrDuplicatedKey.
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, log.Error("failed to connect to database after %d attempts", err, maxRetries)
	}
	log.Success("Connected to database")

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, log.Error("Failed to get underlying *sql.DB instance", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, log.Error("Failed to run migrations", err)
	}
	log.Success("Migrations completed")

	return db, nil
}

// Migrate creates or updates every table in one transaction.
func Migrate(db *gorm.DB) error {
	log.Info("Running migrations...")
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Profile{},
			&models.Visitor{},
		); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
