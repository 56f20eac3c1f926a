package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visitordesk/internal/auth"
	"visitordesk/internal/models"
)

var sess = &auth.Session{ID: "sid", User: auth.User{ID: "u1", Email: "u1@example.com"}}

func profile(role string) *models.Profile {
	return &models.Profile{ID: "u1", Email: "u1@example.com", Role: models.Role(role)}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name    string
		sess    *auth.Session
		profile *models.Profile
		roles   []models.Role
		want    bool
	}{
		{"no session", nil, profile("admin"), []models.Role{models.RoleAdmin}, false},
		{"session without profile is permissive", sess, nil, []models.Role{models.RoleSecurity}, true},
		{"exact match", sess, profile("host"), []models.Role{models.RoleHost}, true},
		{"case insensitive", sess, profile("Reception"), []models.Role{"RECEPTION"}, true},
		{"list membership", sess, profile("security"), []models.Role{models.RoleHost, models.RoleSecurity}, true},
		{"mismatch", sess, profile("host"), []models.Role{models.RoleReception}, false},
		{"empty list", sess, profile("host"), nil, false},
		{"admin satisfies anything", sess, profile("admin"), []models.Role{models.RoleHost}, true},
		{"admin satisfies empty list", sess, profile("ADMIN"), nil, true},
		{"unknown role", sess, profile("janitor"), []models.Role{models.RoleReception}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasRole(tt.sess, tt.profile, tt.roles...))
		})
	}
}

func TestCanAccessMatchesTable(t *testing.T) {
	granted := map[models.Role][]Feature{
		models.RoleReception: {FeatureReception, FeatureBadges, FeatureEvacuation},
		models.RoleHost:      {FeatureApprovals},
		models.RoleSecurity:  {FeatureBlacklist, FeatureEvacuation, FeatureBadges},
		"janitor":            {FeatureReception, FeatureBadges},
	}
	for role, want := range granted {
		for _, f := range AllFeatures {
			expected := contains(want, f)
			assert.Equalf(t, expected, CanAccess(sess, profile(string(role)), f), "role=%s feature=%s", role, f)
		}
	}
}

func TestCanAccessAdminAndLoading(t *testing.T) {
	for _, f := range AllFeatures {
		assert.True(t, CanAccess(sess, profile("admin"), f))
		assert.False(t, CanAccess(nil, profile("admin"), f))
	}
	assert.True(t, CanAccess(sess, nil, FeatureReception))
	assert.True(t, CanAccess(sess, nil, FeatureBadges))
	assert.False(t, CanAccess(sess, nil, FeatureSettings))
	assert.False(t, CanAccess(sess, nil, FeatureApprovals))
}

func TestFeaturesIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, []Feature{FeatureApprovals}, Features("HOST"))
	assert.Equal(t, defaultFeatures, Features(""))
}
