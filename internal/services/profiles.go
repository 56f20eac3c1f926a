package services

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitordesk/internal/models"
	"visitordesk/internal/session"
)

// ProfileService is the profile table. It backs the session resolver's lookups
// and write-backs as well as the admin listing.
type ProfileService struct {
	*BaseServiceImpl[models.Profile]
	db *gorm.DB
}

var (
	_ session.ProfileStore  = (*ProfileService)(nil)
	_ session.ProfileWriter = (*ProfileService)(nil)
)

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		BaseServiceImpl: NewBaseService(db, models.Profile{}),
		db:              db,
	}
}

// FindProfile loads the profile with the given user id. Floors are left
// undecoded; the resolver decodes them so it can log bad values.
func (s *ProfileService) FindProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.WithContext(ctx).Where("id = ?", id).First(profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveProfile inserts a profile unless one already exists for the id.
func (s *ProfileService) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile).Error
}

// Update changes role, name or floors of a profile.
func (s *ProfileService) Update(ctx context.Context, id string, profile *models.Profile) error {
	profile.Role = models.ParseRole(string(profile.Role))
	if profile.Floors != nil {
		profile.AssignedFloors = datatypes.JSON(profile.Floors.Encode())
	}
	if err := s.BaseServiceImpl.Update(ctx, id, profile); err != nil {
		return err
	}
	profile.Floors, _ = models.DecodeFloors(profile.AssignedFloors)
	return nil
}

// List decodes floors on every row so the JSON view is complete.
func (s *ProfileService) List(ctx context.Context, q ListQuery) ([]models.Profile, int64, error) {
	profiles, total, err := s.BaseServiceImpl.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	for i := range profiles {
		profiles[i].Floors, _ = models.DecodeFloors(profiles[i].AssignedFloors)
	}
	return profiles, total, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.BaseServiceImpl.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.Floors, _ = models.DecodeFloors(profile.AssignedFloors)
	return profile, nil
}
