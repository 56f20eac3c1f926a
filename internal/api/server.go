package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	authmw "visitordesk/internal/api/middleware"
	"visitordesk/internal/api/validator"
	"visitordesk/internal/auth"
	"visitordesk/internal/config"
	"visitordesk/internal/dashboard"
	"visitordesk/internal/obs"
	"visitordesk/internal/routes"
	"visitordesk/internal/services"
	console "visitordesk/internal/utils/logger"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	// DB backs the admin panel. Nil disables it.
	DB         *gorm.DB
	Dashboards *dashboard.Registry
	Visitors   *services.VisitorService
	Profiles   *services.ProfileService
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Deps
	guard  *authmw.Guard
}

var log = console.New("API-Server")

// NewServer @title Visitor Desk API
// @version 1.0
// @description Reception, host and security dashboards for visitor management.
// @host localhost:8080
// @BasePath /api/v1
func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Long-lived event streams must not be cut off or buffered.
	streaming := func(c echo.Context) bool {
		return strings.HasSuffix(c.Path(), routes.StreamPath)
	}

	// Configure middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowedOrigin, ","),
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(obs.Instrument())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: streaming,
		Timeout: 30 * time.Second,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: streaming,
		Level:   5,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
		guard:  authmw.NewGuard(cfg.Server.LoginPath),
	}

	s.registerRoutes()
	log.Success("Server configured on %s:%d", cfg.Server.Host, cfg.Server.Port)
	return s
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"version":    "1.0.0",
		"dashboards": s.deps.Dashboards.Len(),
		"time":       time.Now().Format(time.RFC3339),
	})
}

// statusOf maps domain errors that reach the error handler unwrapped.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidQuery), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		message interface{}
		he      *echo.HTTPError
		ve      validator.ValidationErrors
	)

	switch {
	case errors.As(err, &he):
		code = he.Code
		message = he.Message
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		message = ve.Fields()
	default:
		code = statusOf(err)
		if code == http.StatusInternalServerError {
			log.Error("Unhandled error on %s", err, c.Path())
			message = http.StatusText(code)
		} else {
			message = err.Error()
		}
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error": message,
				"code":  code,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
