// Package monitor keeps a session alive in the background by refreshing
// its token shortly before it expires.
package monitor

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/bearer"
)

// RefreshedNotification is sent after every background refresh.
type RefreshedNotification struct {
	OK    bool
	Email string
}

// Monitor polls the store and refreshes tokens that are close to expiry.
// Tokens that are not JWTs carry no readable expiry and are left alone.
type Monitor struct {
	store    *auth.Store
	interval time.Duration
	margin   time.Duration
	persist  func() error
	notify   func(RefreshedNotification)
	logger   hclog.Logger
	now      func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPersist runs fn after each refresh so rotated cookies are kept.
func WithPersist(fn func() error) Option {
	return func(m *Monitor) {
		m.persist = fn
	}
}

// WithNotify is called after each refresh, successful or not.
func WithNotify(fn func(RefreshedNotification)) Option {
	return func(m *Monitor) {
		m.notify = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New creates a monitor that checks every interval and refreshes when less
// than margin is left on the token.
func New(store *auth.Store, interval, margin time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		store:    store,
		interval: interval,
		margin:   margin,
		logger:   hclog.NewNullLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run polls until ctx is done. It always returns nil so it can sit in an
// errgroup next to the UI.
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll refreshes the session if it is due. It reports whether a refresh
// was attempted.
func (m *Monitor) Poll(ctx context.Context) bool {
	if !m.due() {
		return false
	}

	ok := m.store.RefreshToken(ctx)
	if m.persist != nil {
		if err := m.persist(); err != nil {
			m.logger.Error("persisting cookies failed", "error", err)
		}
	}

	n := RefreshedNotification{OK: ok}
	if id, found := m.store.Identity(); found {
		n.Email = id.Email
	}
	m.logger.Debug("background refresh", "ok", ok)
	if m.notify != nil {
		m.notify(n)
	}
	return true
}

func (m *Monitor) due() bool {
	snap := m.store.Snapshot()
	if !snap.IsAuthenticated() || snap.Status == auth.StatusPending {
		return false
	}
	claims, err := bearer.Inspect(snap.Token)
	if err != nil {
		return false
	}
	left := claims.ExpiresIn(m.now())
	return left >= 0 && left <= m.margin
}
