package graphql

import (
	"context"
	"net/http"
)

// Split sends the auth documents over one Doer and every other request over
// another. The auth mutations set, rotate and expire the refresh cookie, and
// a WebSocket only carries cookies on its handshake, so with the ws
// transport they go over HTTP against the same jar.
type Split struct {
	stream  Doer
	cookies Doer
	docs    map[string]bool
}

// NewSplit routes the documents in ops to cookies and the rest to stream.
// Empty documents in ops use the defaults, as in NewRemote.
func NewSplit(stream, cookies Doer, ops Operations) *Split {
	ops = ops.withDefaults()
	return &Split{
		stream:  stream,
		cookies: cookies,
		docs: map[string]bool{
			ops.Login:        true,
			ops.Register:     true,
			ops.RefreshToken: true,
			ops.Logout:       true,
		},
	}
}

func (s *Split) Do(ctx context.Context, jar http.CookieJar, req Request, dst any) error {
	if s.docs[req.Query] {
		return s.cookies.Do(ctx, jar, req, dst)
	}
	return s.stream.Do(ctx, jar, req, dst)
}
