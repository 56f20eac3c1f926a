package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"visitordesk/internal/config"
	"visitordesk/internal/models"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("AUTH")

// Limiter throttles sign-in attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Service is the shared credential authority behind every per-browser Client.
type Service struct {
	store   CredentialStore
	tokens  tokenIssuer
	limiter Limiter
	now     func() time.Time
}

type Option func(*Service)

func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store CredentialStore, cfg config.JWTConfig, opts ...Option) *Service {
	s := &Service{
		store: store,
		tokens: tokenIssuer{
			secret:     []byte(cfg.Secret),
			accessTTL:  cfg.AccessTTL,
			refreshTTL: cfg.RefreshTTL,
		},
		now: time.Now,
	}
	if s.tokens.accessTTL <= 0 {
		s.tokens.accessTTL = time.Hour
	}
	if s.tokens.refreshTTL <= 0 {
		s.tokens.refreshTTL = 7 * 24 * time.Hour
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate checks credentials and opens a new session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			log.Warn("sign-in limiter unavailable: %v", err)
		} else if !ok {
			return nil, ErrRateLimited
		}
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, log.Error("failed to look up %s", err, email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.open(user, uuid.New().String())
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, log.Error("failed to hash password", err)
	}

	user := &models.User{
		Email:    normalizeEmail(in.Email),
		Password: string(hash),
	}
	if err := user.SetMetadata(models.UserMetadata{Role: in.Role, FullName: in.FullName}); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, log.Error("failed to create user %s", err, user.Email)
	}
	log.Info("Registered %s", user.Email)

	return s.open(user, uuid.New().String())
}

// Verify resolves an access token into its session.
func (s *Service) Verify(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := s.tokens.parse(accessToken, tokenAccess, s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sess := s.sessionFor(user, claims.SessionID)
	sess.AccessToken = accessToken
	sess.ExpiresAt = claims.ExpiresAt.Time
	return sess, nil
}

// Refresh trades a refresh token for new tokens on the same session id.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.parse(refreshToken, tokenRefresh, s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.open(user, claims.SessionID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return log.Error("failed to hash password", err)
	}
	return s.store.UpdatePassword(ctx, userID, string(hash))
}

func (s *Service) UpdateFullName(ctx context.Context, userID, fullName string) (*User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	meta := models.UserMetadata{FullName: fullName}
	if role, ok := user.MetadataMap()["role"].(string); ok {
		meta.Role = role
	}
	if err := s.store.UpdateMetadata(ctx, userID, meta); err != nil {
		return nil, err
	}
	if err := user.SetMetadata(meta); err != nil {
		return nil, err
	}
	return toUser(user), nil
}

func (s *Service) open(user *models.User, sid string) (*Session, error) {
	now := s.now()
	access, exp, err := s.tokens.issue(tokenAccess, user.ID, user.Email, sid, now)
	if err != nil {
		return nil, log.Error("failed to sign access token", err)
	}
	refresh, _, err := s.tokens.issue(tokenRefresh, user.ID, user.Email, sid, now)
	if err != nil {
		return nil, log.Error("failed to sign refresh token", err)
	}
	sess := s.sessionFor(user, sid)
	sess.AccessToken = access
	sess.RefreshToken = refresh
	sess.ExpiresAt = exp
	return sess, nil
}

func (s *Service) sessionFor(user *models.User, sid string) *Session {
	return &Session{ID: sid, User: *toUser(user)}
}

func toUser(u *models.User) *User {
	return &User{ID: u.ID, Email: u.Email, Metadata: u.MetadataMap()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
