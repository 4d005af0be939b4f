// Package authtest provides an in-memory GraphQL auth service for tests and
// local development. It speaks just enough GraphQL to serve the Login,
// Register, RefreshToken and Logout mutations over HTTP and over the
// graphql-transport-ws WebSocket protocol.
package authtest

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

// RefreshCookie is the cookie that lets RefreshToken recognize a client.
const RefreshCookie = "refresh_token"

const wsSubprotocol = "graphql-transport-ws"

type user struct {
	id        string
	email     string
	hash      []byte
	createdAt time.Time
}

// Server is the fake auth service. It implements http.Handler.
type Server struct {
	mu       sync.Mutex
	users    map[string]*user  // by email
	sessions map[string]string // refresh token -> user id
	calls    map[string]int
	failures map[string]string

	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	bcost    int

	router   chi.Router
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

// WithSecret sets the HMAC key used to sign access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates an empty service.
func NewServer(opts ...Option) *Server {
	s := &Server{
		users:    make(map[string]*user),
		sessions: make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]string),
		secret:   []byte(uuid.NewString()),
		tokenTTL: 15 * time.Minute,
		now:      time.Now,
		bcost:    bcrypt.MinCost,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{wsSubprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/graphql", s.handleHTTP)
	r.Get("/graphql", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Secret returns the token signing key.
func (s *Server) Secret() []byte {
	return s.secret
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, gqlErr := s.createUser(email, password)
	if gqlErr != "" {
		return "", &gqlError{Message: gqlErr}
	}
	return u.id, nil
}

// FailNext makes the next call of op fail with message.
func (s *Server) FailNext(op, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = message
}

// Calls returns how many times op was executed.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Sessions returns the number of live refresh sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (e *gqlError) Error() string { return e.Message }

type response struct {
	Data   any        `json:"data"`
	Errors []gqlError `json:"errors,omitempty"`
}

type identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type authPayload struct {
	User        identity `json:"user"`
	AccessToken string   `json:"accessToken"`
}

// outcome is the result of executing one operation.
type outcome struct {
	resp      response
	setCookie *http.Cookie
	invalid   bool // rejected before execution
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	var refresh string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}
	out := s.execute(req, refresh)
	if out.setCookie != nil {
		http.SetCookie(w, out.setCookie)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out.resp)
}

var opNameRe = regexp.MustCompile(`^\s*([A-Za-z]+)\s+([_A-Za-z][_0-9A-Za-z]*)`)

func (s *Server) execute(req request, refresh string) outcome {
	m := opNameRe.FindStringSubmatch(req.Query)
	if m == nil {
		return invalid("Syntax Error: Unexpected <EOF>.")
	}
	if m[1] != "mutation" {
		return invalid(`Syntax Error: Unexpected Name "` + m[1] + `".`)
	}
	op := req.OperationName
	if op == "" {
		op = m[2]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case "Login", "Register", "RefreshToken", "Logout":
	default:
		return invalid(`Unknown operation named "` + op + `".`)
	}
	s.calls[op]++
	if msg, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return failed(msg)
	}

	email, _ := req.Variables["email"].(string)
	password, _ := req.Variables["password"].(string)

	switch op {
	case "Login":
		u, ok := s.users[strings.ToLower(email)]
		if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
			return failed("Invalid email or password")
		}
		return s.issue("login", u)

	case "Register":
		u, msg := s.createUser(email, password)
		if msg != "" {
			return failed(msg)
		}
		return s.issue("register", u)

	case "RefreshToken":
		if refresh == "" {
			return failed("Refresh token missing")
		}
		userID, ok := s.sessions[refresh]
		if !ok {
			return failed("Invalid refresh token")
		}
		delete(s.sessions, refresh)
		return s.issue("refreshToken", s.userByID(userID))

	default: // Logout
		if refresh != "" {
			delete(s.sessions, refresh)
		}
		return outcome{
			resp: response{Data: map[string]any{"logout": true}},
			setCookie: &http.Cookie{
				Name:     RefreshCookie,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			},
		}
	}
}

// createUser must be called with s.mu held. It returns a message when the
// account cannot be created.
func (s *Server) createUser(email, password string) (*user, string) {
	key := strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(key, "@") {
		return nil, "Invalid email address"
	}
	if password == "" {
		return nil, "Password is required"
	}
	if _, exists := s.users[key]; exists {
		return nil, "Email already registered"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcost)
	if err != nil {
		return nil, "Password cannot be used"
	}
	u := &user{
		id:        uuid.NewString(),
		email:     key,
		hash:      hash,
		createdAt: s.now().UTC(),
	}
	s.users[key] = u
	return u, ""
}

func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

// issue must be called with s.mu held.
func (s *Server) issue(field string, u *user) outcome {
	if u == nil {
		return failed("User not found")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.id,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return failed("Token could not be issued")
	}

	refresh := uuid.NewString()
	s.sessions[refresh] = u.id

	return outcome{
		resp: response{Data: map[string]any{
			field: authPayload{
				User: identity{
					ID:        u.id,
					Email:     u.email,
					CreatedAt: u.createdAt.Format(time.RFC3339),
				},
				AccessToken: token,
			},
		}},
		setCookie: &http.Cookie{
			Name:     RefreshCookie,
			Value:    refresh,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func failed(msg string) outcome {
	return outcome{resp: response{Errors: []gqlError{{Message: msg}}}}
}

func invalid(msg string) outcome {
	out := failed(msg)
	out.invalid = true
	return out
}
