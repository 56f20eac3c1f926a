package notify

import (
	"context"
	"sync"
	"time"

	"visitordesk/internal/events"
	"visitordesk/internal/models"
	"visitordesk/internal/obs"
	"visitordesk/internal/session"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("NOTIFY")

// ProfileSource is the part of session.Resolver the watcher follows.
type ProfileSource interface {
	State() session.State
	OnChange(fn func(session.State)) events.Unsubscribe
}

// Alerter is a best-effort side effect fired for every new notification.
type Alerter interface {
	Alert(ctx context.Context, n Notification) error
}

type AlerterFunc func(ctx context.Context, n Notification) error

func (f AlerterFunc) Alert(ctx context.Context, n Notification) error { return f(ctx, n) }

// Watcher feeds visitor changes through the classifier for the signed-in viewer.
// It holds a feed subscription only while a profile is resolved and replaces it
// whenever the profile changes.
type Watcher struct {
	feed    events.Subscriber
	source  ProfileSource
	store   *Store
	live    events.Publisher
	alerter Alerter
	now     func() time.Time

	mu        sync.Mutex
	profile   *models.Profile
	unsubFeed events.Unsubscribe
	unsubSrc  events.Unsubscribe
	closed    bool
}

type WatcherOption func(*Watcher)

// WithLive publishes each stored notification on pub under TopicNotification.
func WithLive(pub events.Publisher) WatcherOption {
	return func(w *Watcher) { w.live = pub }
}

func WithAlerter(a Alerter) WatcherOption {
	return func(w *Watcher) { w.alerter = a }
}

func WithClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) { w.now = now }
}

func NewWatcher(feed events.Subscriber, source ProfileSource, store *Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		feed:   feed,
		source: source,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Start() {
	unsub := w.source.OnChange(w.follow)
	w.mu.Lock()
	w.unsubSrc = unsub
	w.mu.Unlock()
	w.follow(w.source.State())
}

func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.unsubSrc != nil {
		w.unsubSrc()
	}
	w.dropFeedLocked()
}

// Subscribed reports whether a feed subscription is currently held.
func (w *Watcher) Subscribed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unsubFeed != nil
}

func (w *Watcher) follow(st session.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || st.Profile == w.profile {
		return
	}

	w.dropFeedLocked()
	w.profile = st.Profile
	if st.Profile == nil {
		w.store.Clear()
		return
	}
	w.unsubFeed = w.feed.On(events.TopicVisitorsChanged, w.handle)
	log.Debug("watching visitor changes for %s (%s)", st.Profile.ID, st.Profile.Role)
}

func (w *Watcher) dropFeedLocked() {
	if w.unsubFeed != nil {
		w.unsubFeed()
		w.unsubFeed = nil
	}
}

func (w *Watcher) handle(data interface{}) {
	evt, ok := data.(models.VisitorEvent)
	if !ok {
		return
	}

	// Classify against the latest committed profile, not the one subscribed with.
	viewer := w.source.State().Profile
	n, ok := Classify(viewer, evt, w.now())
	if !ok {
		return
	}

	w.store.Add(n)
	obs.NotificationsClassified.WithLabelValues(string(n.Type)).Inc()
	if w.live != nil {
		w.live.Emit(events.TopicNotification, n)
	}
	if w.alerter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.alerter.Alert(ctx, n); err != nil {
			log.Debug("alert for %s ignored: %v", n.ID, err)
		}
	}
}

// ChimeAlerter asks connected clients to play the notification sound.
type ChimeAlerter struct {
	pub events.Publisher
}

func NewChimeAlerter(pub events.Publisher) *ChimeAlerter {
	return &ChimeAlerter{pub: pub}
}

func (c *ChimeAlerter) Alert(_ context.Context, n Notification) error {
	c.pub.Emit(events.TopicNotificationChime, n)
	return nil
}

// MultiAlerter fires every alerter and returns the first error.
type MultiAlerter []Alerter

func (m MultiAlerter) Alert(ctx context.Context, n Notification) error {
	var first error
	for _, a := range m {
		if a == nil {
			continue
		}
		if err := a.Alert(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
