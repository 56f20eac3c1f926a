package models

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"visitordesk/internal/config"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("MODELS")

// SeedAdmin creates the first admin login and profile when no admin profile
// exists. It does nothing when the seed credentials are not configured.
func SeedAdmin(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&Profile{}).Where("role = ?", RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	log.Info("Admin count: %d", count)
	if count > 0 {
		return nil
	}

	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := User{
			Email:    cfg.Seed.AdminEmail,
			Password: string(hashedPassword),
		}
		if err := user.SetMetadata(UserMetadata{Role: string(RoleAdmin), FullName: cfg.Seed.AdminName}); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		profile := Profile{
			ID:       user.ID,
			Email:    user.Email,
			FullName: cfg.Seed.AdminName,
			Role:     RoleAdmin,
			Floors:   FloorList{},
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create admin profile: %w", err)
		}
		log.Success("Seeded admin %s", user.Email)
		return nil
	})
}
