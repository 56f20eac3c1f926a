package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"visitordesk/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// CredentialStore persists logins.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateMetadata(ctx context.Context, id string, meta models.UserMetadata) error
}

type GormCredentials struct {
	db *gorm.DB
}

func NewGormCredentials(db *gorm.DB) *GormCredentials {
	return &GormCredentials{db: db}
}

func (s *GormCredentials) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := models.GetUserByEmail(email, s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *GormCredentials) FindByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.WithContext(ctx).Where("id = ?", id).First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *GormCredentials) Create(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (s *GormCredentials) UpdatePassword(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormCredentials) UpdateMetadata(ctx context.Context, id string, meta models.UserMetadata) error {
	user := models.User{}
	if err := user.SetMetadata(meta); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("metadata", user.Metadata).Error
}
