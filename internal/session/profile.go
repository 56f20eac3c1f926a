package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visitordesk/internal/auth"
	"visitordesk/internal/models"
	"visitordesk/internal/obs"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore looks profiles up by user id. It returns ErrProfileNotFound when
// there is no row.
type ProfileStore interface {
	FindProfile(ctx context.Context, id string) (*models.Profile, error)
}

// ProfileWriter persists synthesized profiles.
type ProfileWriter interface {
	SaveProfile(ctx context.Context, profile *models.Profile) error
}

type Outcome string

const (
	OutcomeResolved    Outcome = "resolved"
	OutcomeSynthesized Outcome = "synthesized"
	OutcomeFailed      Outcome = "failed"
)

// Resolution is a profile together with how it was obtained. Profile is never nil.
type Resolution struct {
	Profile *models.Profile
	Outcome Outcome
	Reason  string
}

// Trusted reports whether the profile came from storage.
func (r Resolution) Trusted() bool {
	return r.Outcome == OutcomeResolved
}

const (
	DefaultProfileTimeout = 10 * time.Second
	unknownEmail          = "unknown"
)

var receptionDefaultFloors = models.FloorList{"0", "1"}

// ProfileResolver turns an authenticated user into a profile. Every path yields a
// profile; the Outcome says which path was taken.
type ProfileResolver struct {
	store   ProfileStore
	writer  ProfileWriter
	timeout time.Duration
	now     func() time.Time
}

type ResolverOption func(*ProfileResolver)

func WithTimeout(d time.Duration) ResolverOption {
	return func(r *ProfileResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWriteBack saves synthesized profiles through w. Save errors are logged only.
func WithWriteBack(w ProfileWriter) ResolverOption {
	return func(r *ProfileResolver) { r.writer = w }
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *ProfileResolver) { r.now = now }
}

func NewProfileResolver(store ProfileStore, opts ...ResolverOption) *ProfileResolver {
	r := &ProfileResolver{
		store:   store,
		timeout: DefaultProfileTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ProfileResolver) Resolve(ctx context.Context, user *auth.User) (res Resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			_ = log.Error("profile resolution panicked", fmt.Errorf("panic: %v", rec))
			res = r.failed(user, fmt.Sprintf("panic: %v", rec))
		}
		obs.ProfileResolutions.WithLabelValues(string(res.Outcome)).Inc()
	}()

	if user == nil || strings.TrimSpace(user.Email) == "" {
		log.Warn("no email on session user, using minimal profile")
		return Resolution{Profile: r.minimal(user), Outcome: OutcomeFailed, Reason: "no email"}
	}

	profile, err := r.query(ctx, user.ID)
	switch {
	case err == nil:
		r.decodeFloors(profile)
		return Resolution{Profile: profile, Outcome: OutcomeResolved}
	case errors.Is(err, ErrProfileNotFound):
		return Resolution{Profile: r.synthesize(ctx, user), Outcome: OutcomeSynthesized, Reason: "no stored profile"}
	default:
		log.Warn("profile fetch for %s failed: %v", user.ID, err)
		return r.failed(user, err.Error())
	}
}

// query races the store against the timeout. A store that ignores ctx is left
// running; its late answer is dropped.
func (r *ProfileResolver) query(ctx context.Context, id string) (*models.Profile, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		profile *models.Profile
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("profile store panicked: %v", rec)}
			}
		}()
		p, err := r.store.FindProfile(qctx, id)
		if err == nil && p == nil {
			err = ErrProfileNotFound
		}
		done <- result{profile: p, err: err}
	}()

	select {
	case <-qctx.Done():
		return nil, fmt.Errorf("profile fetch: %w", qctx.Err())
	case res := <-done:
		return res.profile, res.err
	}
}

func (r *ProfileResolver) decodeFloors(p *models.Profile) {
	p.Role = models.ParseRole(string(p.Role))
	if p.Floors != nil {
		return
	}
	floors, err := models.DecodeFloors(p.AssignedFloors)
	if err != nil {
		log.Warn("profile %s has undecodable assigned_floors %q: %v", p.ID, string(p.AssignedFloors), err)
	}
	p.Floors = floors
}

func (r *ProfileResolver) synthesize(ctx context.Context, user *auth.User) *models.Profile {
	role := models.ParseRole(user.MetadataString("role"))
	if role == "" {
		role = roleFromEmail(user.Email)
	}

	floors := models.FloorList{}
	if role == models.RoleReception {
		floors = append(floors, receptionDefaultFloors...)
	}

	name := user.MetadataString("full_name")
	if name == "" {
		name = strings.SplitN(user.Email, "@", 2)[0]
	}

	p := &models.Profile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  name,
		Role:      role,
		Floors:    floors,
		CreatedAt: r.now(),
	}
	log.Info("synthesized %s profile for %s", role, user.Email)

	if r.writer != nil {
		wctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		saved := *p
		if err := r.writer.SaveProfile(wctx, &saved); err != nil {
			log.Warn("could not persist synthesized profile for %s: %v", user.ID, err)
		}
	}
	return p
}

func roleFromEmail(email string) models.Role {
	e := strings.ToLower(email)
	switch {
	case strings.Contains(e, "admin"):
		return models.RoleAdmin
	case strings.Contains(e, "security"):
		return models.RoleSecurity
	case strings.Contains(e, "host"):
		return models.RoleHost
	default:
		return models.RoleReception
	}
}

func (r *ProfileResolver) minimal(user *auth.User) *models.Profile {
	p := &models.Profile{
		FullName:  "User",
		Role:      models.RoleReception,
		Floors:    models.FloorList{},
		CreatedAt: r.now(),
	}
	if user != nil {
		p.ID = user.ID
	}
	return p
}

func (r *ProfileResolver) failed(user *auth.User, reason string) Resolution {
	p := &models.Profile{
		Email:     unknownEmail,
		FullName:  "Unknown User",
		Role:      models.RoleReception,
		Floors:    models.FloorList{},
		CreatedAt: r.now(),
	}
	if user != nil {
		p.ID = user.ID
	}
	return Resolution{Profile: p, Outcome: OutcomeFailed, Reason: reason}
}
