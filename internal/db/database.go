package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-solver/internal/config"
	"go-solver/internal/metrics"
	"go-solver/internal/models"
)

// Init connects to Postgres and migrates the schema. The returned
// handle is passed by reference to repositories; there is no package
// level connection.
func Init(cfg *config.Config) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		CreateBatchSize:                          1000,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logrus.Info("Database connected, running schema migration")

	if err := database.AutoMigrate(
		&models.BatchRecord{},
		&models.IntentRecord{},
		&models.SolutionRecord{},
		&models.OutcomeRecord{},
		&models.BlobObject{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	metrics.DBConnectionStatus.Set(1)
	logrus.Info("Database schema migration completed")

	return database, nil
}
