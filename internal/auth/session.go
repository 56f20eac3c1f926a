package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"visitordesk/internal/events"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoSession          = errors.New("no active session")
	ErrRateLimited        = errors.New("too many sign-in attempts")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// User is the principal an auth provider hands out.
type User struct {
	ID       string                 `json:"id"`
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// MetadataString returns metadata[key] when it is a non-empty string.
func (u *User) MetadataString(key string) string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	s, _ := u.Metadata[key].(string)
	return strings.TrimSpace(s)
}

// Session is an authenticated principal. ID identifies the sign-in and survives
// token refresh.
type Session struct {
	ID           string    `json:"id"`
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// StateChange is delivered to OnAuthStateChange listeners. Session is nil on sign-out.
type StateChange struct {
	Event   EventType
	Session *Session
}

type UserUpdate struct {
	Password string
	FullName string
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Provider is the per-browser auth surface the dashboard consumes.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn func(StateChange)) events.Unsubscribe
	SignInWithPassword(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, in SignUpInput) (*User, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, update UserUpdate) error
}
