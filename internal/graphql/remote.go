package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
)

// Operations holds the GraphQL documents sent for each auth operation. The
// remote schema owns the exact names, so every document is configurable.
type Operations struct {
	Login        string `koanf:"login"`
	Register     string `koanf:"register"`
	RefreshToken string `koanf:"refresh_token"`
	Logout       string `koanf:"logout"`
}

// DefaultOperations returns the documents for the standard auth schema.
func DefaultOperations() Operations {
	return Operations{
		Login: `mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password) {
    user { id email createdAt }
    accessToken
  }
}`,
		Register: `mutation Register($email: String!, $password: String!) {
  register(email: $email, password: $password) {
    user { id email createdAt }
    accessToken
  }
}`,
		RefreshToken: `mutation RefreshToken {
  refreshToken {
    user { id email createdAt }
    accessToken
  }
}`,
		Logout: `mutation Logout {
  logout
}`,
	}
}

// withDefaults fills empty documents from DefaultOperations.
func (o Operations) withDefaults() Operations {
	d := DefaultOperations()
	if o.Login == "" {
		o.Login = d.Login
	}
	if o.Register == "" {
		o.Register = d.Register
	}
	if o.RefreshToken == "" {
		o.RefreshToken = d.RefreshToken
	}
	if o.Logout == "" {
		o.Logout = d.Logout
	}
	return o
}

var operationNameRe = regexp.MustCompile(`^\s*[A-Za-z]+\s+([_A-Za-z][_0-9A-Za-z]*)`)

// OperationName returns the name declared by a document, or "".
func OperationName(doc string) string {
	m := operationNameRe.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return m[1]
}

// CookieSource is a session context that carries a cookie jar.
type CookieSource interface {
	CookieJar() http.CookieJar
}

// authPayload is the result shape of Login, Register and RefreshToken.
type authPayload struct {
	User        *auth.Identity `json:"user"`
	AccessToken string         `json:"accessToken"`
}

// Remote implements auth.Remote over a GraphQL Doer.
type Remote struct {
	doer Doer
	ops  Operations
}

// NewRemote creates a remote. Empty documents in ops use the defaults.
func NewRemote(doer Doer, ops Operations) *Remote {
	return &Remote{doer: doer, ops: ops.withDefaults()}
}

// Login runs the login mutation.
func (r *Remote) Login(ctx context.Context, sc auth.SessionContext, email, password string) (*auth.Result, error) {
	return r.authenticate(ctx, sc, auth.OpLogin, r.ops.Login, map[string]any{
		"email":    email,
		"password": password,
	})
}

// Register runs the register mutation.
func (r *Remote) Register(ctx context.Context, sc auth.SessionContext, email, password string) (*auth.Result, error) {
	return r.authenticate(ctx, sc, auth.OpRegister, r.ops.Register, map[string]any{
		"email":    email,
		"password": password,
	})
}

// RefreshToken runs the refresh mutation, which relies on the session
// context's cookies.
func (r *Remote) RefreshToken(ctx context.Context, sc auth.SessionContext) (*auth.Result, error) {
	return r.authenticate(ctx, sc, auth.OpRefreshToken, r.ops.RefreshToken, nil)
}

// Logout runs the logout mutation. Its result is ignored.
func (r *Remote) Logout(ctx context.Context, sc auth.SessionContext) error {
	req := Request{Query: r.ops.Logout, OperationName: OperationName(r.ops.Logout)}
	if err := r.doer.Do(ctx, jarOf(sc), req, nil); err != nil {
		return remoteError(auth.OpLogout, err)
	}
	return nil
}

func (r *Remote) authenticate(ctx context.Context, sc auth.SessionContext, op auth.Operation, doc string, vars map[string]any) (*auth.Result, error) {
	req := Request{Query: doc, OperationName: OperationName(doc), Variables: vars}

	var data map[string]json.RawMessage
	if err := r.doer.Do(ctx, jarOf(sc), req, &data); err != nil {
		return nil, remoteError(op, err)
	}
	if len(data) != 1 {
		return nil, &auth.RemoteError{Op: op, Err: fmt.Errorf("%w: want one root field, got %d", auth.ErrMalformedResult, len(data))}
	}

	var payload authPayload
	for field, raw := range data {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, &auth.RemoteError{Op: op, Err: fmt.Errorf("%w: decoding %s: %v", auth.ErrMalformedResult, field, err)}
		}
	}
	if payload.User == nil || payload.User.ID == "" || payload.AccessToken == "" {
		return nil, &auth.RemoteError{Op: op, Err: auth.ErrMalformedResult}
	}
	return &auth.Result{Identity: payload.User, Token: payload.AccessToken}, nil
}

// remoteError folds any transport or GraphQL failure into the single
// failure kind the session store understands.
func remoteError(op auth.Operation, err error) error {
	re := &auth.RemoteError{Op: op, Err: err}
	var gqlErr *ResponseError
	var statusErr *StatusError
	switch {
	case errors.As(err, &gqlErr):
		re.Message = gqlErr.Message()
	case errors.As(err, &statusErr):
		re.Message = statusErr.Error()
	}
	return re
}

func jarOf(sc auth.SessionContext) http.CookieJar {
	if src, ok := sc.(CookieSource); ok {
		return src.CookieJar()
	}
	return nil
}
