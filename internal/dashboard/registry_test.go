package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"visitordesk/internal/auth"
	"visitordesk/internal/config"
	"visitordesk/internal/events"
	"visitordesk/internal/models"
	"visitordesk/internal/notify"
	"visitordesk/internal/session"
)

const (
	wait = 2 * time.Second
	poll = 5 * time.Millisecond
)

type memCreds struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memCreds) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memCreds) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memCreds) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil.String() || u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = u
	return nil
}

func (m *memCreds) UpdatePassword(_ context.Context, id, hash string) error { return nil }

func (m *memCreds) UpdateMetadata(_ context.Context, id string, meta models.UserMetadata) error {
	return nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func (m *memProfiles) FindProfile(_ context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, session.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	deps  Deps
	feed  *events.EventBus
	clock *clock
	admin *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.LoadTestConfig()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &models.User{Email: "admin@example.com", Password: string(hash)}
	admin.ID = uuid.NewString()
	require.NoError(t, admin.SetMetadata(models.UserMetadata{Role: "admin", FullName: "Ada"}))

	creds := &memCreds{users: map[string]*models.User{admin.ID: admin}}
	profiles := &memProfiles{profiles: map[string]*models.Profile{
		admin.ID: {ID: admin.ID, Email: admin.Email, FullName: "Ada", Role: models.RoleAdmin},
	}}

	feed := events.NewEventBus("feed", 0)
	clk := &clock{t: time.Now()}
	return &fixture{
		deps: Deps{
			Auth:     auth.NewService(creds, cfg.JWT),
			Profiles: profiles,
			Feed:     feed,
			Session:  cfg.Session,
			Notify:   cfg.Notify,
			Now:      clk.Now,
		},
		feed:  feed,
		clock: clk,
		admin: admin,
	}
}

func TestRegistrySignIn(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()

	res := reg.SignIn(context.Background(), "admin@example.com", "correct horse")
	require.Empty(t, res.Error)
	require.NotNil(t, res.Session)
	require.NotNil(t, res.Profile)
	require.Equal(t, models.RoleAdmin, res.Profile.Role)
	require.Equal(t, session.OutcomeResolved, res.Outcome)

	require.Equal(t, 1, reg.Len())
	d := reg.Get(res.Session.ID)
	require.NotNil(t, d)
	require.Equal(t, res.Session.ID, d.SessionID())
}

func TestRegistrySignInFailureRegistersNothing(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()

	res := reg.SignIn(context.Background(), "admin@example.com", "wrong")
	require.Equal(t, auth.ErrInvalidCredentials.Error(), res.Error)
	require.Nil(t, res.Session)
	require.Zero(t, reg.Len())
}

func TestRegistryAttach(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()
	ctx := context.Background()

	res := reg.SignIn(ctx, "admin@example.com", "correct horse")
	require.Empty(t, res.Error)

	d, err := reg.Attach(ctx, res.Session.AccessToken)
	require.NoError(t, err)
	require.Same(t, reg.Get(res.Session.ID), d)
	require.Equal(t, 1, reg.Len())

	_, err = reg.Attach(ctx, "garbage")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRegistryAttachOpensUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := NewRegistry(f.deps)
	res := first.SignIn(ctx, "admin@example.com", "correct horse")
	require.Empty(t, res.Error)
	first.CloseAll()

	// A fresh process picks the session up from the bearer token alone.
	second := NewRegistry(f.deps)
	defer second.CloseAll()
	d, err := second.Attach(ctx, res.Session.AccessToken)
	require.NoError(t, err)

	st, err := d.Resolver.Wait(ctx)
	require.NoError(t, err)
	require.True(t, st.Authenticated())
	require.NotNil(t, st.Profile)
	require.Equal(t, f.admin.ID, st.Profile.ID)
}

func TestRegistrySignOut(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	ctx := context.Background()

	res := reg.SignIn(ctx, "admin@example.com", "correct horse")
	d := reg.Get(res.Session.ID)
	require.NotNil(t, d)

	reg.SignOut(ctx, res.Session.ID)
	require.Zero(t, reg.Len())
	require.False(t, d.State().Authenticated())

	// Signed-out tokens no longer attach or refresh.
	_, err := reg.Attach(ctx, res.Session.AccessToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = reg.Refresh(ctx, res.Session.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	require.Zero(t, reg.Len())

	// Unknown ids are ignored.
	reg.SignOut(ctx, "nope")
}

func TestRegistryRefresh(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()
	ctx := context.Background()

	res := reg.SignIn(ctx, "admin@example.com", "correct horse")
	sess, err := reg.Refresh(ctx, res.Session.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, res.Session.ID, sess.ID)
	require.Equal(t, 1, reg.Len())

	held, _ := reg.Get(sess.ID).Client.GetSession(ctx)
	require.Equal(t, sess.RefreshToken, held.RefreshToken)

	// An access token is not a refresh token.
	_, err = reg.Refresh(ctx, res.Session.AccessToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = reg.Refresh(ctx, "nope")
	require.Error(t, err)
}

func TestRegistrySweepsIdleDashboards(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()
	ctx := context.Background()

	res := reg.SignIn(ctx, "admin@example.com", "correct horse")
	require.Equal(t, 1, reg.Len())

	require.Zero(t, reg.Sweep(time.Minute))

	f.clock.Advance(2 * time.Minute)
	require.Equal(t, 1, reg.Sweep(time.Minute))
	require.Nil(t, reg.Get(res.Session.ID))
}

func TestDashboardCollectsNotifications(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.deps)
	defer reg.CloseAll()
	ctx := context.Background()

	res := reg.SignIn(ctx, "admin@example.com", "correct horse")
	d := reg.Get(res.Session.ID)
	require.Eventually(t, d.Watcher.Subscribed, wait, poll)

	chimes := make(chan notify.Notification, 1)
	d.Live.On(events.TopicNotificationChime, func(data interface{}) { chimes <- data.(notify.Notification) })

	f.feed.Emit(events.TopicVisitorsChanged, models.VisitorEvent{
		Type: models.ChangeInsert,
		New:  models.VisitorSnapshot{ID: "v1", Name: "Walk In", FloorNumber: 2},
	})

	require.Eventually(t, func() bool { return d.Store.Len() == 1 }, wait, poll)
	select {
	case n := <-chimes:
		require.Equal(t, notify.TypeWalkIn, n.Type)
	case <-time.After(wait):
		t.Fatal("no chime")
	}
}
