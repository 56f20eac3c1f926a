package middleware

import (
	"visitordesk/internal/access"
	"visitordesk/internal/models"
)

// Requirement is what a route demands of the caller. The zero value only
// demands a session.
type Requirement struct {
	Roles   []models.Role
	Feature access.Feature
	// Trusted refuses profiles that were synthesized or fell back after a failed
	// lookup.
	Trusted bool
}

// Authenticated admits any signed-in caller.
var Authenticated = Requirement{}

// RequireRoles admits callers holding one of roles. Admin always passes.
func RequireRoles(roles ...models.Role) Requirement {
	return Requirement{Roles: roles}
}

// RequireFeature admits callers whose role grants feature.
func RequireFeature(feature access.Feature) Requirement {
	return Requirement{Feature: feature}
}

// Strict is r, additionally refusing untrusted profiles.
func (r Requirement) Strict() Requirement {
	r.Trusted = true
	return r
}
