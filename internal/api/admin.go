package api

import (
	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"
	"github.com/labstack/echo/v4"

	authmw "visitordesk/internal/api/middleware"
	"visitordesk/internal/models"
	"visitordesk/internal/obs"
)

// adminPanelRequirement is what the data panel demands: an admin whose profile
// was read from storage.
var adminPanelRequirement = authmw.RequireRoles(models.RoleAdmin).Strict()

// adminPermission is the panel's permission hook. The request context must have
// gone through the auth middleware; anything else is refused.
func adminPermission(_ admin.PermissionRequest, ctx interface{}) (bool, error) {
	c, ok := ctx.(echo.Context)
	if !ok {
		return false, nil
	}
	decision := authmw.Evaluate(authmw.GetState(c), adminPanelRequirement)
	obs.GuardDecisions.WithLabelValues(decision.String()).Inc()
	return decision == authmw.DecisionAllow, nil
}

// mountAdminPanel serves the profile and visitor tables to trusted admins.
// Users are left out so password hashes never reach the panel.
func (s *Server) mountAdminPanel(attach echo.MiddlewareFunc) error {
	if s.deps.DB == nil {
		log.Info("No database handle, admin panel disabled")
		return nil
	}

	panel, err := admin.NewPanel(
		admingorm.NewIntegrator(s.deps.DB),
		adminecho.NewIntegrator(s.echo.Group("", attach)),
		adminPermission,
		nil,
	)
	if err != nil {
		return log.Error("Failed to create admin panel", err)
	}

	app, err := panel.RegisterApp("VisitorDesk", "Visitor Desk", nil)
	if err != nil {
		return log.Error("Failed to register admin app", err)
	}
	for _, model := range []interface{}{&models.Profile{}, &models.Visitor{}} {
		if _, err := app.RegisterModel(model, nil); err != nil {
			return log.Error("Failed to register %T with admin panel", err, model)
		}
	}
	log.Success("Admin panel mounted")
	return nil
}
