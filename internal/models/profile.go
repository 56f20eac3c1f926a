package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is the durable identity record behind a session. ID is the user id.
type Profile struct {
	ID       string  `gorm:"type:uuid;primary_key" json:"id"`
	Email    string  `gorm:"index;not null" json:"email"`
	FullName string  `json:"fullName"`
	Role     Role    `gorm:"not null;default:'reception'" json:"role" validate:"required,user_role"`
	TenantID *string `gorm:"type:uuid" json:"tenantId,omitempty"`
	// AssignedFloors is stored either as a JSON array or as a JSON string holding an
	// encoded array. Floors is the decoded view.
	AssignedFloors datatypes.JSON `gorm:"type:jsonb" json:"-"`
	Floors         FloorList      `gorm:"-" json:"assignedFloors"`
	CreatedAt      time.Time      `json:"createdAt"`
}
