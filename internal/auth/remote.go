package auth

import (
	"context"
	"errors"
	"fmt"
)

// Operation names a remote auth mutation.
type Operation string

const (
	OpLogin        Operation = "Login"
	OpRegister     Operation = "Register"
	OpRefreshToken Operation = "RefreshToken"
	OpLogout       Operation = "Logout"
)

// Identity is the authenticated user's public profile.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

// Result is what a successful Login, Register or RefreshToken returns.
type Result struct {
	Identity *Identity
	Token    string
}

// SessionContext is the state the remote uses to recognize a returning
// client (for example a refresh cookie). The store never looks inside it;
// it only hands it to every remote call.
type SessionContext interface {
	ID() string
}

// Remote performs credential verification and token issuance.
type Remote interface {
	Login(ctx context.Context, sc SessionContext, email, password string) (*Result, error)
	Register(ctx context.Context, sc SessionContext, email, password string) (*Result, error)
	RefreshToken(ctx context.Context, sc SessionContext) (*Result, error)
	Logout(ctx context.Context, sc SessionContext) error
}

// ErrMalformedResult is returned when a remote reports success without
// both an identity and a token.
var ErrMalformedResult = errors.New("malformed auth result")

// RemoteError is the single failure kind reported by a Remote. Message is
// the optional human-readable description of the failure.
type RemoteError struct {
	Op      Operation
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed", e.Op)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// describe returns the message to show for err, or fallback when err
// carries no description.
func describe(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		if re.Err != nil && re.Err.Error() != "" {
			return re.Err.Error()
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// checkResult enforces that a success carries identity and token together.
func checkResult(op Operation, res *Result) error {
	if res == nil || res.Identity == nil || res.Token == "" {
		return &RemoteError{Op: op, Err: ErrMalformedResult}
	}
	return nil
}
