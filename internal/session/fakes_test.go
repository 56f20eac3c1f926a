package session

import (
	"context"
	"errors"
	"sync"

	"visitordesk/internal/auth"
	"visitordesk/internal/events"
	"visitordesk/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	calls    map[string]int
	gates    map[string]chan struct{}
	err      error
	panics   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*models.Profile{},
		calls:    map[string]int{},
		gates:    map[string]chan struct{}{},
	}
}

func (s *fakeStore) put(p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// hold makes lookups for id block until the returned func is called. The block
// ignores ctx, like a network call that cannot be cancelled.
func (s *fakeStore) hold(id string) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *fakeStore) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func (s *fakeStore) FindProfile(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	s.calls[id]++
	gate := s.gates[id]
	p, ok := s.profiles[id]
	err := s.err
	panics := s.panics
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if panics {
		panic("store exploded")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeWriter struct {
	mu    sync.Mutex
	saved []*models.Profile
	err   error
}

func (w *fakeWriter) SaveProfile(_ context.Context, p *models.Profile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved = append(w.saved, p)
	return w.err
}

// fakeProvider is an auth.Provider whose accounts are keyed by email with the
// password "pw".
type fakeProvider struct {
	mu         sync.Mutex
	session    *auth.Session
	users      map[string]auth.User
	bus        *events.EventBus
	signOutErr error
	updates    []auth.UserUpdate
}

func newFakeProvider(users ...auth.User) *fakeProvider {
	p := &fakeProvider{users: map[string]auth.User{}, bus: events.NewEventBus("fake-auth", 0)}
	for _, u := range users {
		p.users[u.Email] = u
	}
	return p
}

func (p *fakeProvider) GetSession(context.Context) (*auth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, nil
	}
	cp := *p.session
	return &cp, nil
}

func (p *fakeProvider) OnAuthStateChange(fn func(auth.StateChange)) events.Unsubscribe {
	return p.bus.On(events.TopicAuthState, func(data interface{}) {
		fn(data.(auth.StateChange))
	})
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*auth.User, error) {
	u, ok := p.users[email]
	if !ok || password != "pw" {
		return nil, auth.ErrInvalidCredentials
	}
	p.emit(auth.EventSignedIn, &auth.Session{ID: "sid-" + u.ID, User: u, AccessToken: "token-" + u.ID})
	return &u, nil
}

func (p *fakeProvider) SignUp(_ context.Context, in auth.SignUpInput) (*auth.User, error) {
	if _, ok := p.users[in.Email]; ok {
		return nil, auth.ErrEmailTaken
	}
	u := auth.User{ID: "new-" + in.Email, Email: in.Email, Metadata: map[string]interface{}{"role": in.Role}}
	p.users[in.Email] = u
	p.emit(auth.EventSignedIn, &auth.Session{ID: "sid-" + u.ID, User: u})
	return &u, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.emit(auth.EventSignedOut, nil)
	return p.signOutErr
}

func (p *fakeProvider) UpdateUser(_ context.Context, update auth.UserUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return auth.ErrNoSession
	}
	if len(update.Password) < 8 {
		return errors.New("password too short")
	}
	p.updates = append(p.updates, update)
	return nil
}

// emit sets the held session and announces it, as a hosted auth client would.
func (p *fakeProvider) emit(evt auth.EventType, sess *auth.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = sess
	p.bus.Emit(events.TopicAuthState, auth.StateChange{Event: evt, Session: sess})
}
