package models

import (
	"strings"

	"gorm.io/gorm"
)

// GetUserByEmail looks a user up by its normalized email.
func GetUserByEmail(email string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
