package client

import (
	"time"

	"viptips-platform/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func InitMysqlClient(databaseURL string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("get underlying sql.DB")
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("auto migrate")
	}

	return db
}

// Migrate runs schema migration for every model the platform persists.
// Shared with the sqlite-backed test setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Tip{},
		&model.Subscription{},
		&model.VIPToken{},
		&model.WebhookEvent{},
		&model.AnalyticsEvent{},
		&model.AdminAuditLog{},
	)
}
