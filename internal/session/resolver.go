package session

import (
	"context"
	"sync"

	"visitordesk/internal/access"
	"visitordesk/internal/auth"
	"visitordesk/internal/events"
	"visitordesk/internal/models"
	"visitordesk/internal/obs"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("SESSION")

// State is the resolver's committed view of who is signed in.
type State struct {
	Session *auth.Session
	User    *auth.User
	Profile *models.Profile
	Outcome Outcome
	Loading bool
}

// Authenticated reports whether a session is held.
func (s State) Authenticated() bool {
	return s.Session != nil
}

type SignInResult struct {
	User    *auth.User      `json:"user"`
	Profile *models.Profile `json:"profile"`
	Outcome Outcome         `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Resolver keeps one browser's session and profile in step with its auth
// provider. Profile fetches are tagged with a generation; a fetch that finishes
// after the session changed is discarded.
type Resolver struct {
	provider auth.Provider
	profiles *ProfileResolver
	bus      *events.EventBus

	mu         sync.Mutex
	state      State
	generation uint64
	settled    chan struct{}
	loading    bool
	started    bool
	closed     bool

	unsub  events.Unsubscribe
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewResolver(provider auth.Provider, profiles *ProfileResolver) *Resolver {
	settled := make(chan struct{})
	close(settled)
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		provider: provider,
		profiles: profiles,
		bus:      events.NewEventBus("session", 0),
		settled:  settled,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start loads any existing session and follows auth changes until Close.
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	unsub := r.provider.OnAuthStateChange(r.handle)
	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()

	sess, err := r.provider.GetSession(ctx)
	if err != nil {
		log.Warn("could not read existing session: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess == nil {
		if r.state.Session == nil {
			r.state = State{}
			r.commitLocked()
		}
		return nil
	}
	r.signedInLocked(sess)
	return nil
}

// Close stops following auth changes and drops any in-flight fetch.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.generation++
	r.settleLocked()
	unsub := r.unsub
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	r.cancel()
	r.wg.Wait()
}

// State returns a copy of the committed state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnChange delivers every committed state, in order, on a separate goroutine.
func (r *Resolver) OnChange(fn func(State)) events.Unsubscribe {
	return r.bus.On(events.TopicSessionState, func(data interface{}) {
		if st, ok := data.(State); ok {
			fn(st)
		}
	})
}

// Wait blocks until no profile fetch is pending.
func (r *Resolver) Wait(ctx context.Context) (State, error) {
	r.mu.Lock()
	ch := r.settled
	r.mu.Unlock()

	select {
	case <-ch:
		return r.State(), nil
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// SignIn authenticates and returns the resolved profile. Failures are reported in
// the result, never as an error.
func (r *Resolver) SignIn(ctx context.Context, email, password string) SignInResult {
	user, err := r.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		log.Info("sign-in failed for %s: %v", email, err)
		return SignInResult{Error: err.Error()}
	}
	return r.adoptAndWait(ctx, user)
}

func (r *Resolver) SignUp(ctx context.Context, in auth.SignUpInput) SignInResult {
	user, err := r.provider.SignUp(ctx, in)
	if err != nil {
		return SignInResult{Error: err.Error()}
	}
	return r.adoptAndWait(ctx, user)
}

func (r *Resolver) adoptAndWait(ctx context.Context, user *auth.User) SignInResult {
	sess, err := r.provider.GetSession(ctx)
	if err == nil && sess != nil {
		r.mu.Lock()
		r.signedInLocked(sess)
		r.mu.Unlock()
	}

	st, err := r.Wait(ctx)
	res := SignInResult{User: user, Profile: st.Profile, Outcome: st.Outcome}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// SignOut clears local state whatever the provider says.
func (r *Resolver) SignOut(ctx context.Context) {
	if err := r.provider.SignOut(ctx); err != nil {
		log.Warn("provider sign-out: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signedOutLocked()
}

func (r *Resolver) UpdatePassword(ctx context.Context, password string) error {
	return r.provider.UpdateUser(ctx, auth.UserUpdate{Password: password})
}

func (r *Resolver) HasRole(roles ...models.Role) bool {
	st := r.State()
	return access.HasRole(st.Session, st.Profile, roles...)
}

func (r *Resolver) CanAccess(feature access.Feature) bool {
	st := r.State()
	return access.CanAccess(st.Session, st.Profile, feature)
}

func (r *Resolver) handle(change auth.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	switch change.Event {
	case auth.EventSignedIn, auth.EventTokenRefreshed, auth.EventUserUpdated:
		if change.Session != nil {
			r.signedInLocked(change.Session)
		}
	case auth.EventSignedOut:
		r.signedOutLocked()
	}
}

// signedInLocked adopts sess. The same user again only refreshes the held
// session; a different user starts a new profile fetch.
func (r *Resolver) signedInLocked(sess *auth.Session) {
	if r.closed {
		return
	}
	if r.state.User != nil && r.state.User.ID == sess.User.ID {
		r.state.Session = sess
		user := sess.User
		r.state.User = &user
		r.commitLocked()
		return
	}

	r.generation++
	gen := r.generation
	user := sess.User
	r.state = State{Session: sess, User: &user, Loading: true}
	if !r.loading {
		r.loading = true
		r.settled = make(chan struct{})
	}
	r.commitLocked()

	r.wg.Add(1)
	go r.fetch(gen, user)
}

func (r *Resolver) fetch(gen uint64, user auth.User) {
	defer r.wg.Done()

	res := r.profiles.Resolve(r.ctx, &user)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		obs.StaleProfileFetches.Inc()
		log.Debug("discarding profile for %s from generation %d", user.ID, gen)
		return
	}
	r.state.Profile = res.Profile
	r.state.Outcome = res.Outcome
	r.state.Loading = false
	r.settleLocked()
	r.commitLocked()
}

func (r *Resolver) signedOutLocked() {
	r.generation++
	r.state = State{}
	r.settleLocked()
	r.commitLocked()
}

func (r *Resolver) settleLocked() {
	if r.loading {
		r.loading = false
		close(r.settled)
	}
}

// commitLocked publishes the state while the lock is held, so listeners observe
// commits in order.
func (r *Resolver) commitLocked() {
	r.bus.Emit(events.TopicSessionState, r.state)
}
