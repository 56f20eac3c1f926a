// Package access maps dashboard roles to the features they may open.
package access

import (
	"visitordesk/internal/auth"
	"visitordesk/internal/models"
)

type Feature string

const (
	FeatureReception  Feature = "reception"
	FeatureBadges     Feature = "badges"
	FeatureEvacuation Feature = "evacuation"
	FeatureApprovals  Feature = "approvals"
	FeatureBlacklist  Feature = "blacklist"
	FeatureSettings   Feature = "settings"
	FeatureUsers      Feature = "users"
	FeatureAnalytics  Feature = "analytics"
)

// AllFeatures is every feature tag, in menu order.
var AllFeatures = []Feature{
	FeatureReception, FeatureBadges, FeatureEvacuation, FeatureApprovals,
	FeatureBlacklist, FeatureSettings, FeatureUsers, FeatureAnalytics,
}

var roleFeatures = map[models.Role][]Feature{
	models.RoleAdmin:     AllFeatures,
	models.RoleReception: {FeatureReception, FeatureBadges, FeatureEvacuation},
	models.RoleHost:      {FeatureApprovals},
	models.RoleSecurity:  {FeatureBlacklist, FeatureEvacuation, FeatureBadges},
}

// defaultFeatures apply to unknown roles and to sessions whose profile is still loading.
var defaultFeatures = []Feature{FeatureReception, FeatureBadges}

// Features returns the features granted to role. The slice must not be modified.
func Features(role models.Role) []Feature {
	if fs, ok := roleFeatures[models.ParseRole(string(role))]; ok {
		return fs
	}
	return defaultFeatures
}

// HasRole reports whether the viewer holds one of roles. A session without a
// profile passes, since the profile is still being resolved. Admin passes always.
func HasRole(sess *auth.Session, profile *models.Profile, roles ...models.Role) bool {
	if sess == nil {
		return false
	}
	if profile == nil {
		return true
	}

	have := models.ParseRole(string(profile.Role))
	if have == models.RoleAdmin {
		return true
	}
	for _, r := range roles {
		if models.ParseRole(string(r)) == have {
			return true
		}
	}
	return false
}

// CanAccess reports whether the viewer may open feature.
func CanAccess(sess *auth.Session, profile *models.Profile, feature Feature) bool {
	if sess == nil {
		return false
	}
	if profile == nil {
		return contains(defaultFeatures, feature)
	}
	if models.ParseRole(string(profile.Role)) == models.RoleAdmin {
		return true
	}
	return contains(Features(profile.Role), feature)
}

func contains(fs []Feature, f Feature) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}
