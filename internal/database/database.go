package database

import (
	"fmt"
	"log"

	"account-market/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations on the given handle. Tests use this
// against an in-memory database.
func Migrate(db *gorm.DB) error {
	// Core account and ticket models first; everything else references them.
	coreModels := []interface{}{
		&models.User{},
		&models.Ticket{},
		&models.Message{},
		&models.TicketNote{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Commerce models
	commerceModels := []interface{}{
		&models.Order{},
		&models.Review{},
		&models.GiftCard{},
	}

	for _, model := range commerceModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Loyalty and referral models
	loyaltyModels := []interface{}{
		&models.LedgerEntry{},
		&models.Referral{},
	}

	for _, model := range loyaltyModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		return fmt.Errorf("migration failed for %T: %w", &models.AuditLog{}, err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
