package routes

import (
	"github.com/labstack/echo/v4"

	"visitordesk/internal/access"
	"visitordesk/internal/api/middleware"
	"visitordesk/internal/handlers"
	"visitordesk/internal/models"
)

// SetupVisitorRoutes registers the visitor write routes. Reads go through the
// CRUD registry.
func SetupVisitorRoutes(api *echo.Group, guard *middleware.Guard, visitors handlers.Visitors) {
	visitorHandler := handlers.NewVisitorHandler(visitors)

	group := api.Group("/visitors")

	group.POST("", visitorHandler.Create, guard.Require(middleware.RequireRoles(models.RoleReception, models.RoleHost)))
	group.POST("/:id/check-in", visitorHandler.CheckIn, guard.Require(middleware.RequireFeature(access.FeatureReception)))
	group.POST("/:id/check-out", visitorHandler.CheckOut, guard.Require(middleware.RequireFeature(access.FeatureReception)))
	group.PUT("/:id/blacklist", visitorHandler.Blacklist, guard.Require(middleware.RequireFeature(access.FeatureBlacklist).Strict()))
}

// SetupProfileRoutes registers profile administration.
func SetupProfileRoutes(api *echo.Group, guard *middleware.Guard, profiles handlers.Profiles) {
	profileHandler := handlers.NewProfileHandler(profiles)
	api.PUT("/profiles/:id", profileHandler.Update, guard.Require(middleware.RequireFeature(access.FeatureUsers).Strict()))
}
