package dashboard

import (
	"context"
	"sync"
	"time"

	"visitordesk/internal/auth"
	"visitordesk/internal/obs"
	"visitordesk/internal/session"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("DASHBOARD")

// Registry owns the open dashboards, keyed by session id.
type Registry struct {
	deps Deps

	mu     sync.RWMutex
	boards map[string]*Dashboard
	// revoked holds signed-out session ids until their tokens could no longer
	// verify anyway.
	revoked map[string]time.Time
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:    deps,
		boards:  make(map[string]*Dashboard),
		revoked: make(map[string]time.Time),
	}
}

func (r *Registry) isRevoked(sid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[sid]
	return ok
}

// SignInResult adds the issued session to the resolver's result so the caller
// can hand tokens back to the browser.
type SignInResult struct {
	session.SignInResult
	Session *auth.Session `json:"session,omitempty"`
}

// SignIn opens a dashboard for a fresh login. Nothing is registered on failure.
func (r *Registry) SignIn(ctx context.Context, email, password string) SignInResult {
	d := newDashboard(r.deps)
	if err := d.start(ctx); err != nil {
		d.Close()
		return SignInResult{SignInResult: session.SignInResult{Error: err.Error()}}
	}
	return r.register(ctx, d, d.Resolver.SignIn(ctx, email, password))
}

func (r *Registry) SignUp(ctx context.Context, in auth.SignUpInput) SignInResult {
	d := newDashboard(r.deps)
	if err := d.start(ctx); err != nil {
		d.Close()
		return SignInResult{SignInResult: session.SignInResult{Error: err.Error()}}
	}
	return r.register(ctx, d, d.Resolver.SignUp(ctx, in))
}

func (r *Registry) register(ctx context.Context, d *Dashboard, res session.SignInResult) SignInResult {
	if res.Error != "" {
		d.Close()
		return SignInResult{SignInResult: res}
	}
	sess, _ := d.Client.GetSession(ctx)
	if sess == nil {
		d.Close()
		return SignInResult{SignInResult: session.SignInResult{Error: auth.ErrNoSession.Error()}}
	}
	r.put(sess.ID, d)
	return SignInResult{SignInResult: res, Session: sess}
}

// Attach returns the dashboard behind an access token, opening one when the
// session has none yet (a new browser tab, or a restart).
func (r *Registry) Attach(ctx context.Context, accessToken string) (*Dashboard, error) {
	sess, err := r.deps.Auth.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if r.isRevoked(sess.ID) {
		return nil, auth.ErrInvalidToken
	}

	if d := r.Get(sess.ID); d != nil {
		d.Touch()
		if held, _ := d.Client.GetSession(ctx); held == nil || held.AccessToken != accessToken {
			if _, err := d.Client.Restore(ctx, accessToken); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	d := newDashboard(r.deps)
	if _, err := d.Client.Restore(ctx, accessToken); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.start(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return r.put(sess.ID, d), nil
}

// put registers d unless another dashboard won the race for sid, in which case
// d is closed and the existing one returned.
func (r *Registry) put(sid string, d *Dashboard) *Dashboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.boards[sid]; ok {
		go d.Close()
		return existing
	}
	r.boards[sid] = d
	obs.ActiveDashboards.Set(float64(len(r.boards)))
	log.Debug("opened dashboard for session %s", sid)
	return d
}

func (r *Registry) Get(sid string) *Dashboard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.boards[sid]
}

// Refresh trades a refresh token for new tokens. The access token may already
// have expired, so the session is found through the refresh token alone.
func (r *Registry) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	sess, err := r.deps.Auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if r.isRevoked(sess.ID) {
		return nil, auth.ErrInvalidToken
	}

	if d := r.Get(sess.ID); d != nil {
		d.Touch()
		d.Client.Adopt(sess)
		return sess, nil
	}

	d := newDashboard(r.deps)
	d.Client.Adopt(sess)
	if err := d.start(ctx); err != nil {
		d.Close()
		return nil, err
	}
	r.put(sess.ID, d)
	return sess, nil
}

// SignOut ends the session and closes its dashboard. Its tokens stop
// attaching from then on.
func (r *Registry) SignOut(ctx context.Context, sid string) {
	d := r.remove(sid)
	if d == nil {
		return
	}
	r.mu.Lock()
	r.revoked[sid] = r.deps.now().Add(r.deps.revokeFor())
	r.mu.Unlock()
	d.Resolver.SignOut(ctx)
	d.Close()
}

func (r *Registry) remove(sid string) *Dashboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.boards[sid]
	if !ok {
		return nil
	}
	delete(r.boards, sid)
	obs.ActiveDashboards.Set(float64(len(r.boards)))
	return d
}

// Sweep closes dashboards idle for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	now := r.deps.now()
	cutoff := now.Add(-idle)

	r.mu.Lock()
	for sid, until := range r.revoked {
		if now.After(until) {
			delete(r.revoked, sid)
		}
	}
	var stale []*Dashboard
	for sid, d := range r.boards {
		if d.LastSeen().Before(cutoff) {
			stale = append(stale, d)
			delete(r.boards, sid)
		}
	}
	obs.ActiveDashboards.Set(float64(len(r.boards)))
	r.mu.Unlock()

	for _, d := range stale {
		d.Close()
	}
	if len(stale) > 0 {
		log.Info("swept %d idle dashboards", len(stale))
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// CloseAll shuts every dashboard down, used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[string]*Dashboard)
	obs.ActiveDashboards.Set(0)
	r.mu.Unlock()

	for _, d := range boards {
		d.Close()
	}
}
