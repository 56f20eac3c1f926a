package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (p *Profile) BeforeSave(tx *gorm.DB) error {
	p.Role = ParseRole(string(p.Role))
	if p.Role == "" {
		p.Role = RoleReception
	}
	if p.Floors != nil {
		p.AssignedFloors = datatypes.JSON(p.Floors.Encode())
	}
	return nil
}

func (v *Visitor) BeforeCreate(tx *gorm.DB) error {
	if err := v.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if v.Status == "" {
		v.Status = VisitorStatusPending
	}
	return nil
}
