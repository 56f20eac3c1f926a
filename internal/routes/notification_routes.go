package routes

import (
	"time"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/middleware"
	"visitordesk/internal/handlers"
)

// StreamPath is the server-sent events endpoint, relative to the API group.
const StreamPath = "/notifications/stream"

func SetupNotificationRoutes(api *echo.Group, guard *middleware.Guard, heartbeat time.Duration) {
	notificationHandler := handlers.NewNotificationHandler(heartbeat)

	signedIn := guard.Require(middleware.Authenticated)
	api.GET(StreamPath, notificationHandler.Stream, signedIn)

	group := api.Group("/notifications", signedIn)
	group.GET("", notificationHandler.List)
	group.POST("/read-all", notificationHandler.MarkAllRead)
	group.POST("/:id/read", notificationHandler.MarkRead)
}
