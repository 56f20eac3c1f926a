package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/access"
	"visitordesk/internal/obs"
	"visitordesk/internal/session"
)

// Decision is what the guard does with a request.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionLoading
	DecisionRedirect
	DecisionAccessDenied
	DecisionRestricted
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionAccessDenied:
		return "access_denied"
	case DecisionRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Evaluate decides a request against req using only the committed state.
func Evaluate(st session.State, req Requirement) Decision {
	if st.Loading {
		return DecisionLoading
	}
	if st.Session == nil {
		return DecisionRedirect
	}
	if len(req.Roles) > 0 && !access.HasRole(st.Session, st.Profile, req.Roles...) {
		return DecisionAccessDenied
	}
	if req.Trusted && st.Outcome != session.OutcomeResolved {
		return DecisionAccessDenied
	}
	if req.Feature != "" && !access.CanAccess(st.Session, st.Profile, req.Feature) {
		return DecisionRestricted
	}
	return DecisionAllow
}

// Guard renders guard decisions over HTTP.
type Guard struct {
	LoginPath string
	// RetryAfter is sent with loading responses, in seconds.
	RetryAfter int
	// State reads the caller's session state. Defaults to GetState.
	State func(echo.Context) session.State
}

func NewGuard(loginPath string) *Guard {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Guard{LoginPath: loginPath, RetryAfter: 1, State: GetState}
}

// Require guards the routes it wraps with req.
func (g *Guard) Require(req Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := Evaluate(g.State(c), req)
			obs.GuardDecisions.WithLabelValues(decision.String()).Inc()

			switch decision {
			case DecisionAllow:
				return next(c)
			case DecisionLoading:
				c.Response().Header().Set("Retry-After", strconv.Itoa(g.RetryAfter))
				return c.JSON(http.StatusAccepted, map[string]interface{}{"loading": true})
			case DecisionRedirect:
				if wantsJSON(c) {
					return c.JSON(http.StatusUnauthorized, map[string]interface{}{
						"error":    "authentication required",
						"redirect": g.LoginPath,
					})
				}
				return c.Redirect(http.StatusFound, g.LoginPath)
			case DecisionAccessDenied:
				return echo.NewHTTPError(http.StatusForbidden, "access denied")
			default:
				return echo.NewHTTPError(http.StatusForbidden, "restricted")
			}
		}
	}
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	if strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return true
	}
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	return req.Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest"
}
