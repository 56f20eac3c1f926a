// Package dashboard wires one browser session's auth client, profile resolver
// and notification watcher together, and keeps them by session id.
package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"visitordesk/internal/auth"
	"visitordesk/internal/config"
	"visitordesk/internal/events"
	"visitordesk/internal/notify"
	"visitordesk/internal/session"
)

// Deps are shared by every dashboard.
type Deps struct {
	Auth     *auth.Service
	Profiles session.ProfileStore
	// Writer persists synthesized profiles when Session.WriteBack is on.
	Writer    session.ProfileWriter
	Feed      events.Subscriber
	Escalator notify.Alerter
	Session   config.SessionConfig
	Notify    config.NotifyConfig
	// RevokeFor is how long a signed-out session id is refused. It should
	// cover the refresh token lifetime.
	RevokeFor time.Duration
	Now       func() time.Time
}

func (d Deps) revokeFor() time.Duration {
	if d.RevokeFor > 0 {
		return d.RevokeFor
	}
	return 7 * 24 * time.Hour
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type Dashboard struct {
	Client   *auth.Client
	Resolver *session.Resolver
	Store    *notify.Store
	Watcher  *notify.Watcher
	// Live carries notifications and chime signals to connected streams.
	Live *events.EventBus

	deps     Deps
	lastSeen atomic.Int64
	closed   atomic.Bool
	done     chan struct{}
}

func newDashboard(deps Deps) *Dashboard {
	opts := []session.ResolverOption{session.WithTimeout(deps.Session.ProfileTimeout)}
	if deps.Session.WriteBack && deps.Writer != nil {
		opts = append(opts, session.WithWriteBack(deps.Writer))
	}
	if deps.Now != nil {
		opts = append(opts, session.WithClock(deps.Now))
	}

	client := auth.NewClient(deps.Auth)
	live := events.NewEventBus("live", deps.Notify.StreamBuffer)
	store := notify.NewStore(deps.Notify.Capacity)
	resolver := session.NewResolver(client, session.NewProfileResolver(deps.Profiles, opts...))

	alerters := notify.MultiAlerter{notify.NewChimeAlerter(live)}
	if deps.Escalator != nil {
		alerters = append(alerters, deps.Escalator)
	}
	watcherOpts := []notify.WatcherOption{notify.WithLive(live), notify.WithAlerter(alerters)}
	if deps.Now != nil {
		watcherOpts = append(watcherOpts, notify.WithClock(deps.Now))
	}

	d := &Dashboard{
		Client:   client,
		Resolver: resolver,
		Store:    store,
		Watcher:  notify.NewWatcher(deps.Feed, resolver, store, watcherOpts...),
		Live:     live,
		deps:     deps,
		done:     make(chan struct{}),
	}
	d.Touch()
	return d
}

func (d *Dashboard) start(ctx context.Context) error {
	if err := d.Resolver.Start(ctx); err != nil {
		return err
	}
	d.Watcher.Start()
	return nil
}

// Touch records activity for idle sweeping.
func (d *Dashboard) Touch() {
	d.lastSeen.Store(d.deps.now().UnixNano())
}

func (d *Dashboard) LastSeen() time.Time {
	return time.Unix(0, d.lastSeen.Load())
}

func (d *Dashboard) State() session.State {
	return d.Resolver.State()
}

// SessionID is the id of the held session, or "" when signed out.
func (d *Dashboard) SessionID() string {
	if st := d.Resolver.State(); st.Session != nil {
		return st.Session.ID
	}
	return ""
}

func (d *Dashboard) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.done)
	d.Watcher.Close()
	d.Resolver.Close()
}

// Done is closed when the dashboard is closed.
func (d *Dashboard) Done() <-chan struct{} {
	return d.done
}
