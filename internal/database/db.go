package database

import (
	"log"

	"supplydesk-backend/internal/config"
	"supplydesk-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init opens the Postgres connection and migrates the schema.
func Init(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("Database connected, migration complete.")
	return db
}

// Migrate runs AutoMigrate for every persisted model. Shared with the
// test helper so tests migrate the exact production schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.SupplyItem{},
		&models.UsageRecord{},
		&models.SupplyRequest{},
		&models.AuditLog{},
	)
}
