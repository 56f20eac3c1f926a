package api

import (
	"net/http"

	_ "visitordesk/docs/swagger"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	authmw "visitordesk/internal/api/middleware"
	"visitordesk/internal/api/registry"
	"visitordesk/internal/obs"
	"visitordesk/internal/routes"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Visitor Desk")
	})
	// @Summary Health check
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(obs.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group. Every request is matched to its dashboard when it carries a
	// token; the guards decide what anonymous or loading callers get.
	api := s.echo.Group("/api/v1")
	auth := authmw.NewAuthMiddleware(s.deps.Dashboards, s.config.Session.SettleTimeout)
	api.Use(auth.Middleware())

	if err := s.mountAdminPanel(auth.Middleware()); err != nil {
		log.Warn("Continuing without admin panel")
	}

	routes.SetupAuthRoutes(api, s.guard, s.deps.Dashboards)
	routes.SetupNotificationRoutes(api, s.guard, s.config.Notify.Heartbeat)
	routes.SetupVisitorRoutes(api, s.guard, s.deps.Visitors)
	routes.SetupProfileRoutes(api, s.guard, s.deps.Profiles)

	registry.RegisterCRUDRoutes(api, s.guard, registry.Services{
		Visitors: s.deps.Visitors,
		Profiles: s.deps.Profiles,
	})
}
