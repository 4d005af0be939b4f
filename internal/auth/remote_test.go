package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoteErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  *RemoteError
		want string
	}{
		{"message wins", &RemoteError{Op: OpLogin, Message: "Invalid credentials", Err: cause}, "Invalid credentials"},
		{"cause", &RemoteError{Op: OpRefreshToken, Err: cause}, "RefreshToken: dial tcp: connection refused"},
		{"bare", &RemoteError{Op: OpLogout}, "Logout failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRemoteErrorUnwrap(t *testing.T) {
	err := error(&RemoteError{Op: OpLogin, Err: ErrMalformedResult})
	require.ErrorIs(t, err, ErrMalformedResult)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, OpLogin, re.Op)
}

func TestCheckResult(t *testing.T) {
	require.NoError(t, checkResult(OpLogin, result("1", "a@b.com", "tok")))
	require.ErrorIs(t, checkResult(OpLogin, nil), ErrMalformedResult)
	require.ErrorIs(t, checkResult(OpLogin, &Result{Token: "tok"}), ErrMalformedResult)
	require.ErrorIs(t, checkResult(OpLogin, &Result{Identity: &Identity{ID: "1"}}), ErrMalformedResult)
}
