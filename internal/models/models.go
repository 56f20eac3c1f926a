package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReception Role = "reception"
	RoleHost      Role = "host"
	RoleSecurity  Role = "security"
)

// Roles lists every role the dashboard knows about.
var Roles = []Role{RoleAdmin, RoleReception, RoleHost, RoleSecurity}

// ParseRole normalizes s. Unknown values are returned lowercased, not rejected.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// IsValidRole checks if a given role is valid
func IsValidRole(role Role) bool {
	switch ParseRole(string(role)) {
	case RoleAdmin, RoleReception, RoleHost, RoleSecurity:
		return true
	default:
		return false
	}
}

type VisitorStatus string

const (
	VisitorStatusPending    VisitorStatus = "pending"
	VisitorStatusCheckedIn  VisitorStatus = "checked_in"
	VisitorStatusCheckedOut VisitorStatus = "checked_out"
)

type Visitor struct {
	Base
	Name          string        `gorm:"not null" json:"name" validate:"required,min=2"`
	Company       string        `json:"company"`
	HostID        string        `gorm:"type:uuid;index" json:"hostId" validate:"omitempty,uuid"`
	FloorNumber   int           `gorm:"not null;default:0" json:"floorNumber" validate:"min=0"`
	Status        VisitorStatus `gorm:"not null;default:'pending'" json:"status" validate:"omitempty,visitor_status"`
	GuestCode     string        `gorm:"index" json:"guestCode,omitempty"`
	IsBlacklisted bool          `gorm:"not null;default:false" json:"isBlacklisted"`
	CheckedInAt   *time.Time    `json:"checkedInAt,omitempty"`
	CheckedOutAt  *time.Time    `json:"checkedOutAt,omitempty"`
}

// VisitorSnapshot is the row image carried by a visitor change event.
type VisitorSnapshot struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	HostID        string        `json:"host_id"`
	FloorNumber   int           `json:"floor_number"`
	Status        VisitorStatus `json:"status"`
	GuestCode     string        `json:"guest_code,omitempty"`
	Company       string        `json:"company,omitempty"`
	IsBlacklisted bool          `json:"is_blacklisted"`
}

func (v *Visitor) Snapshot() VisitorSnapshot {
	return VisitorSnapshot{
		ID:            v.ID,
		Name:          v.Name,
		HostID:        v.HostID,
		FloorNumber:   v.FloorNumber,
		Status:        v.Status,
		GuestCode:     v.GuestCode,
		Company:       v.Company,
		IsBlacklisted: v.IsBlacklisted,
	}
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// VisitorEvent is one insert or update on the visitors table, unfiltered by viewer.
type VisitorEvent struct {
	Type ChangeType      `json:"eventType"`
	New  VisitorSnapshot `json:"new"`
	At   time.Time       `json:"commitTimestamp"`
}
