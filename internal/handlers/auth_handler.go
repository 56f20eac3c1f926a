package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/access"
	"visitordesk/internal/api/middleware"
	"visitordesk/internal/api/validator"
	"visitordesk/internal/auth"
	"visitordesk/internal/dashboard"
	"visitordesk/internal/models"
	"visitordesk/internal/session"
	"visitordesk/internal/utils/logger"
)

// Sessions is the part of the dashboard registry the auth endpoints use.
type Sessions interface {
	SignIn(ctx context.Context, email, password string) dashboard.SignInResult
	SignUp(ctx context.Context, in auth.SignUpInput) dashboard.SignInResult
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	SignOut(ctx context.Context, sid string)
}

type AuthHandler struct {
	sessions Sessions
	log      *logger.Logger
}

func NewAuthHandler(sessions Sessions) *AuthHandler {
	return &AuthHandler{sessions: sessions, log: logger.New("AuthHandler")}
}

// tokens is the session part of sign-in responses.
type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

func tokensOf(s *auth.Session) *tokens {
	if s == nil {
		return nil
	}
	return &tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, ExpiresAt: s.ExpiresAt.Unix()}
}

type signInResponse struct {
	User    *auth.User      `json:"user"`
	Profile *models.Profile `json:"profile"`
	Outcome session.Outcome `json:"outcome"`
	Session *tokens         `json:"session"`
}

func signInStatus(msg string) int {
	switch msg {
	case auth.ErrRateLimited.Error():
		return http.StatusTooManyRequests
	case auth.ErrEmailTaken.Error():
		return http.StatusConflict
	case auth.ErrWeakPassword.Error():
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}

// SignIn authenticates with email and password.
// @Router /api/v1/auth/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req validator.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res := h.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if res.Error != "" {
		return c.JSON(signInStatus(res.Error), map[string]string{"error": res.Error})
	}
	h.log.Info("signed in %s (%s)", req.Email, res.Outcome)
	return c.JSON(http.StatusOK, signInResponse{
		User: res.User, Profile: res.Profile, Outcome: res.Outcome, Session: tokensOf(res.Session),
	})
}

// SignUp registers an account and signs it in.
// @Router /api/v1/auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req validator.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res := h.sessions.SignUp(c.Request().Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		// Self-registered accounts start as reception whatever the email
		// says. Other roles are granted on the profile record by an admin.
		Role:     string(models.RoleReception),
	})
	if res.Error != "" {
		return c.JSON(signInStatus(res.Error), map[string]string{"error": res.Error})
	}
	return c.JSON(http.StatusCreated, signInResponse{
		User: res.User, Profile: res.Profile, Outcome: res.Outcome, Session: tokensOf(res.Session),
	})
}

// Refresh rotates the session tokens.
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req validator.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	sess, err := h.sessions.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, tokensOf(sess))
}

// SignOut ends the caller's session. It always succeeds.
// @Router /api/v1/auth/sign-out [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if sid := middleware.GetSessionID(c); sid != "" {
		h.sessions.SignOut(c.Request().Context(), sid)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdatePassword changes the caller's password.
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req validator.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	d := middleware.GetDashboard(c)
	if d == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrNoSession.Error())
	}
	if err := d.Resolver.UpdatePassword(c.Request().Context(), req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated"})
}

type meResponse struct {
	User     *auth.User       `json:"user"`
	Profile  *models.Profile  `json:"profile"`
	Outcome  session.Outcome  `json:"outcome"`
	Features []access.Feature `json:"features"`
	Unread   int              `json:"unread"`
}

// GetMe returns the caller's identity and what they may open.
// @Router /api/v1/me [get]
func (h *AuthHandler) GetMe(c echo.Context) error {
	d := middleware.GetDashboard(c)
	if d == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrNoSession.Error())
	}
	st := d.State()

	var features []access.Feature
	for _, f := range access.AllFeatures {
		if access.CanAccess(st.Session, st.Profile, f) {
			features = append(features, f)
		}
	}
	return c.JSON(http.StatusOK, meResponse{
		User:     st.User,
		Profile:  st.Profile,
		Outcome:  st.Outcome,
		Features: features,
		Unread:   d.Store.UnreadCount(),
	})
}
