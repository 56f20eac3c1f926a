package registry

import (
	"github.com/labstack/echo/v4"

	"visitordesk/internal/access"
	"visitordesk/internal/api/controllers"
	"visitordesk/internal/api/middleware"
	"visitordesk/internal/models"
	"visitordesk/internal/services"
)

// Services are the tables exposed through the read registry.
type Services struct {
	Visitors services.BaseService[models.Visitor]
	Profiles services.BaseService[models.Profile]
}

// hostScope limits hosts to the visitors they are hosting.
func hostScope(c echo.Context, filters map[string]interface{}) {
	st := middleware.GetState(c)
	if st.Profile != nil && models.ParseRole(string(st.Profile.Role)) == models.RoleHost {
		filters["host_id"] = st.Profile.ID
	}
}

// RegisterCRUDRoutes registers list and get routes for every exposed table.
func RegisterCRUDRoutes(g *echo.Group, guard *middleware.Guard, svc Services) {
	// Visitors
	// @Router /api/v1/visitors [get]
	// @Router /api/v1/visitors/{id} [get]
	visitorController := controllers.NewBaseController(svc.Visitors, hostScope)
	visitorController.RegisterRoutes(g, "/visitors",
		guard.Require(middleware.RequireRoles(models.RoleReception, models.RoleHost, models.RoleSecurity)))

	// Profiles
	// @Router /api/v1/profiles [get]
	// @Router /api/v1/profiles/{id} [get]
	profileController := controllers.NewBaseController(svc.Profiles)
	profileController.RegisterRoutes(g, "/profiles", guard.Require(middleware.RequireFeature(access.FeatureUsers).Strict()))
}
