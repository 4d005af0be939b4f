// Package auth holds the client-side session: who is logged in, with which
// bearer token, and whether a remote auth call is in flight.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	loginFallback    = "Login failed"
	registerFallback = "Registration failed"
)

// Status is the transient operation status of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// State is the position of a session in its state machine.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StatePending
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	Identity  *Identity
	Token     string
	Status    Status
	LastError string
}

// IsAuthenticated reports whether an identity is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.Identity != nil
}

// State derives the state machine position.
func (s Snapshot) State() State {
	switch {
	case s.Status == StatusPending:
		return StatePending
	case s.IsAuthenticated():
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

func (s Snapshot) clone() Snapshot {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Observer is told about every finished remote call.
type Observer interface {
	ObserveOperation(op Operation, err error, elapsed time.Duration)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a null logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithObserver registers an observer for finished remote calls.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithOnChange registers a callback invoked with the new snapshot after
// every state change. It runs outside the store's lock.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// WithClock overrides the time source used for call timings.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the session store. Create one per application and pass it to
// whatever needs it.
//
// Operations are not serialized against each other. Each one folds its own
// outcome when its remote call returns, so when calls overlap the one that
// returns last wins: a Login that resolves after a Logout leaves the session
// logged in. The fold itself is atomic, so identity and token always change
// together.
type Store struct {
	remote   Remote
	sc       SessionContext
	logger   hclog.Logger
	observer Observer
	onChange func(Snapshot)
	now      func() time.Time

	mu    sync.RWMutex
	state Snapshot
}

// NewStore creates an empty, unauthenticated session.
func NewStore(remote Remote, sc SessionContext, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		sc:     sc,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a consistent copy of the session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Identity returns the current identity, if any.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Identity == nil {
		return Identity{}, false
	}
	return *s.state.Identity, true
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Status returns the operation status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}

// LastError returns the message of the last failed login or registration.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastError
}

// IsAuthenticated reports whether an identity is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Identity != nil
}

// SessionContext returns the context handed to the remote.
func (s *Store) SessionContext() SessionContext {
	return s.sc
}

// Login authenticates with email and password. On failure the current
// session is kept and LastError describes what went wrong.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	s.begin()
	start := s.now()
	res, err := s.remote.Login(ctx, s.sc, email, password)
	if err == nil {
		err = checkResult(OpLogin, res)
	}
	s.observe(OpLogin, err, start)
	if err != nil {
		s.logger.Warn("login failed", "email", email, "session", s.contextID(), "error", err)
		s.fail(describe(err, loginFallback))
		return false
	}
	s.logger.Info("logged in", "email", res.Identity.Email, "session", s.contextID())
	s.set(res)
	return true
}

// Register creates an account and authenticates as it.
func (s *Store) Register(ctx context.Context, email, password string) bool {
	s.begin()
	start := s.now()
	res, err := s.remote.Register(ctx, s.sc, email, password)
	if err == nil {
		err = checkResult(OpRegister, res)
	}
	s.observe(OpRegister, err, start)
	if err != nil {
		s.logger.Warn("registration failed", "email", email, "session", s.contextID(), "error", err)
		s.fail(describe(err, registerFallback))
		return false
	}
	s.logger.Info("registered", "email", res.Identity.Email, "session", s.contextID())
	s.set(res)
	return true
}

// RefreshToken asks the remote for a fresh token for the session it
// recognizes. Any failure is treated as expiry: the session is cleared and
// no error is recorded.
func (s *Store) RefreshToken(ctx context.Context) bool {
	s.begin()
	start := s.now()
	res, err := s.remote.RefreshToken(ctx, s.sc)
	if err == nil {
		err = checkResult(OpRefreshToken, res)
	}
	s.observe(OpRefreshToken, err, start)
	if err != nil {
		s.logger.Debug("refresh failed, clearing session", "session", s.contextID(), "error", err)
		s.clear()
		return false
	}
	s.logger.Debug("token refreshed", "email", res.Identity.Email, "session", s.contextID())
	s.set(res)
	return true
}

// Logout tells the remote to end the session and clears it locally. The
// local clear always happens, whatever the remote does. A remote that
// panics is logged like any other failure.
func (s *Store) Logout(ctx context.Context) {
	s.begin()
	defer s.clear()

	start := s.now()
	err := s.remoteLogout(ctx)
	s.observe(OpLogout, err, start)
	if err != nil {
		s.logger.Debug("remote logout failed", "session", s.contextID(), "error", err)
		return
	}
	s.logger.Info("logged out", "session", s.contextID())
}

func (s *Store) remoteLogout(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RemoteError{Op: OpLogout, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.remote.Logout(ctx, s.sc)
}

// Initialize recovers a session from whatever the remote still knows about
// this client. Call it once at startup.
func (s *Store) Initialize(ctx context.Context) {
	s.RefreshToken(ctx)
}

func (s *Store) begin() {
	s.update(func(st *Snapshot) {
		st.Status = StatusPending
		st.LastError = ""
	})
}

func (s *Store) set(res *Result) {
	id := *res.Identity
	s.update(func(st *Snapshot) {
		st.Identity = &id
		st.Token = res.Token
		st.LastError = ""
		st.Status = StatusIdle
	})
}

func (s *Store) fail(msg string) {
	s.update(func(st *Snapshot) {
		st.LastError = msg
		st.Status = StatusIdle
	})
}

func (s *Store) clear() {
	s.update(func(st *Snapshot) {
		*st = Snapshot{Status: StatusIdle}
	})
}

// update applies fn under the lock, then notifies outside it.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Store) observe(op Operation, err error, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveOperation(op, err, s.now().Sub(start))
	}
}

func (s *Store) contextID() string {
	if s.sc == nil {
		return ""
	}
	return s.sc.ID()
}
