package auth

import (
	"context"
	"sync"

	"visitordesk/internal/events"
)

// Client is the auth provider for one browser. It holds at most one session and
// announces changes to it on a private bus, in order.
type Client struct {
	svc *Service
	bus *events.EventBus

	mu      sync.RWMutex
	session *Session
}

var _ Provider = (*Client)(nil)

func NewClient(svc *Service) *Client {
	return &Client{
		svc: svc,
		bus: events.NewEventBus("auth-client", 0),
	}
}

func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, nil
	}
	cp := *c.session
	return &cp, nil
}

func (c *Client) OnAuthStateChange(fn func(StateChange)) events.Unsubscribe {
	return c.bus.On(events.TopicAuthState, func(data interface{}) {
		if change, ok := data.(StateChange); ok {
			fn(change)
		}
	})
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	sess, err := c.svc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	u := sess.User
	return &u, nil
}

func (c *Client) SignUp(ctx context.Context, in SignUpInput) (*User, error) {
	sess, err := c.svc.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	u := sess.User
	return &u, nil
}

// Restore adopts a session from a bearer token, the way a browser tab picks up
// an existing login. Restoring the held user again re-announces SIGNED_IN.
func (c *Client) Restore(ctx context.Context, accessToken string) (*Session, error) {
	sess, err := c.svc.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	if c.session != nil && c.session.RefreshToken != "" && c.session.ID == sess.ID {
		sess.RefreshToken = c.session.RefreshToken
	}
	c.mu.RUnlock()
	c.set(EventSignedIn, sess)
	return sess, nil
}

// Adopt replaces the held session with one refreshed elsewhere, announced as
// TOKEN_REFRESHED.
func (c *Client) Adopt(sess *Session) {
	c.set(EventTokenRefreshed, sess)
}

func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	sess, err := c.svc.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	c.set(EventTokenRefreshed, sess)
	return sess, nil
}

// SignOut drops the held session. It reports ErrNoSession when there was none.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}
	c.session = nil
	c.bus.Emit(events.TopicAuthState, StateChange{Event: EventSignedOut})
	return nil
}

func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) error {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()
	if current == nil {
		return ErrNoSession
	}

	if update.Password != "" {
		if err := c.svc.UpdatePassword(ctx, current.User.ID, update.Password); err != nil {
			return err
		}
	}
	next := *current
	if update.FullName != "" {
		user, err := c.svc.UpdateFullName(ctx, current.User.ID, update.FullName)
		if err != nil {
			return err
		}
		next.User = *user
	}
	c.set(EventUserUpdated, &next)
	return nil
}

func (c *Client) set(evt EventType, sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = sess

	// Emit under the lock so listeners see changes in the order they were applied.
	cp := *sess
	c.bus.Emit(events.TopicAuthState, StateChange{Event: evt, Session: &cp})
}
