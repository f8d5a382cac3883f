package database

import (
	"errors"
	"fmt"

	config "github.com/komunitas/platform/configs"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/utils"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Whitelist{},
		&models.OTPCode{},
		&models.Activity{},
		&models.ActivityRegistration{},
		&models.Merchandise{},
		&models.Address{},
		&models.Order{},
		&models.PaymentNotification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedAdmin makes sure the configured admin phone can log in with the admin
// role and is whitelisted.
func SeedAdmin(db *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	if cfg.AdminPhone == "" {
		log.Warn().Msg("ADMIN_PHONE not set, skipping admin seed")
		return nil
	}
	phone, err := utils.NormalizePhone(cfg.AdminPhone)
	if err != nil {
		return fmt.Errorf("invalid ADMIN_PHONE: %w", err)
	}

	var user models.User
	err = db.Where("phone = ?", phone).First(&user).Error
	switch {
	case err == nil:
		if user.Role != models.RoleAdmin {
			if err := db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
				return fmt.Errorf("failed to promote admin user: %w", err)
			}
			log.Info().Str("phone", phone).Msg("existing user promoted to admin")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{FullName: cfg.AdminName, Phone: phone, Role: models.RoleAdmin, IsActive: true}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		log.Info().Str("phone", phone).Msg("admin user seeded")
	default:
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	return db.Where(models.Whitelist{Phone: phone}).
		Attrs(models.Whitelist{Name: cfg.AdminName}).
		FirstOrCreate(&models.Whitelist{}).Error
}
