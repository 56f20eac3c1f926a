package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/dashboard"
	"visitordesk/internal/session"
	"visitordesk/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const dashboardKey = "dashboard"

// Attacher resolves a bearer token to the dashboard of its session.
type Attacher interface {
	Attach(ctx context.Context, accessToken string) (*dashboard.Dashboard, error)
}

type AuthMiddleware struct {
	attacher Attacher
	// settle bounds how long a request waits for a first profile fetch before the
	// guard sees the loading state.
	settle time.Duration
}

func NewAuthMiddleware(attacher Attacher, settle time.Duration) *AuthMiddleware {
	return &AuthMiddleware{attacher: attacher, settle: settle}
}

// Middleware attaches the caller's dashboard when a valid bearer token is sent.
// Requests without one continue unauthenticated so the guard can redirect them.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}
			if token == "" {
				return next(c)
			}

			d, err := m.attacher.Attach(c.Request().Context(), token)
			if err != nil {
				log.Debug("rejected token from %s: %v", c.RealIP(), err)
				return next(c)
			}
			if m.settle > 0 && d.State().Loading {
				ctx, cancel := context.WithTimeout(c.Request().Context(), m.settle)
				_, _ = d.Resolver.Wait(ctx)
				cancel()
			}

			c.Set(dashboardKey, d)
			return next(c)
		}
	}
}

// bearerToken reads the Authorization header. EventSource clients cannot set
// headers, so an access_token query parameter is accepted too.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return c.QueryParam("access_token"), nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
	}
	return parts[1], nil
}

// GetDashboard returns the dashboard attached by the auth middleware, or nil.
func GetDashboard(c echo.Context) *dashboard.Dashboard {
	if d, ok := c.Get(dashboardKey).(*dashboard.Dashboard); ok {
		return d
	}
	return nil
}

// GetState returns the caller's committed session state. Anonymous callers get
// the zero state.
func GetState(c echo.Context) session.State {
	if d := GetDashboard(c); d != nil {
		return d.State()
	}
	return session.State{}
}

// GetSessionID returns the caller's session id, or "".
func GetSessionID(c echo.Context) string {
	if d := GetDashboard(c); d != nil {
		return d.SessionID()
	}
	return ""
}
