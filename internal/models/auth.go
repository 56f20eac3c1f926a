package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// User is a credential record. Role and display name live in Metadata, the way a
// hosted auth provider keeps user metadata next to the login.
type User struct {
	Base
	Email    string         `gorm:"uniqueIndex;not null" json:"email"`
	Password string         `gorm:"not null" json:"-"`
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// UserMetadata is the known shape of User.Metadata.
type UserMetadata struct {
	Role     string `json:"role,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

func (u *User) MetadataMap() map[string]interface{} {
	out := map[string]interface{}{}
	if len(u.Metadata) == 0 {
		return out
	}
	if err := json.Unmarshal(u.Metadata, &out); err != nil {
		log.Warn("user %s has unreadable metadata: %v", u.ID, err)
		return map[string]interface{}{}
	}
	return out
}

func (u *User) SetMetadata(meta UserMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	u.Metadata = datatypes.JSON(raw)
	return nil
}
