package routes

import (
	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/middleware"
	"visitordesk/internal/handlers"
	"visitordesk/internal/utils/logger"
)

func SetupAuthRoutes(api *echo.Group, guard *middleware.Guard, sessions handlers.Sessions) {
	authHandler := handlers.NewAuthHandler(sessions)

	auth := api.Group("/auth")

	// Public routes (no session required)
	auth.POST("/sign-in", authHandler.SignIn)
	auth.POST("/sign-up", authHandler.SignUp)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/sign-out", authHandler.SignOut)

	signedIn := guard.Require(middleware.Authenticated)
	auth.PUT("/password", authHandler.UpdatePassword, signedIn)
	api.GET("/me", authHandler.GetMe, signedIn)

	logger.New("auth_routes").Success("Auth routes initialized successfully")
}
