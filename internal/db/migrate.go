package db

import (
	"github.com/ikkim/traceability-backend/internal/app/model"
	"github.com/ikkim/traceability-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migrate creates the two entity tables and their unique indexes. The joined
// read side is computed per query, so no view is created.
func Migrate(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.Product{},
		&model.TraceabilityCode{},
	}

	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
