package graphql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/authtest"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/graphql"
}

func TestWSClientLogin(t *testing.T) {
	fake := authtest.NewServer()
	_, err := fake.AddUser("a@b.com", "pw")
	require.NoError(t, err)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	remote := NewRemote(NewWSClient(wsURL(srv.URL)), Operations{})

	res, err := remote.Login(context.Background(), NewCookieContext(), "a@b.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", res.Identity.Email)
	require.NotEmpty(t, res.Token)
}

func TestWSClientExecutionError(t *testing.T) {
	fake := authtest.NewServer()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	remote := NewRemote(NewWSClient(wsURL(srv.URL)), Operations{})

	_, err := remote.Login(context.Background(), NewCookieContext(), "a@b.com", "pw")
	var re *auth.RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "Invalid email or password", re.Message)
}

func TestWSClientValidationError(t *testing.T) {
	fake := authtest.NewServer()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewWSClient(wsURL(srv.URL))
	err := client.Do(context.Background(), nil, Request{Query: "query Me { me }"}, nil)
	var gqlErr *ResponseError
	require.ErrorAs(t, err, &gqlErr)
	require.Contains(t, gqlErr.Message(), "Syntax Error")
}

func TestWSClientAnswersPing(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg WSMessage
		if conn.ReadJSON(&msg) != nil || msg.Type != MsgConnectionInit {
			return
		}
		conn.WriteJSON(WSMessage{Type: MsgPing})
		if conn.ReadJSON(&msg) != nil || msg.Type != MsgPong {
			return
		}
		conn.WriteJSON(WSMessage{Type: MsgConnectionAck})

		if conn.ReadJSON(&msg) != nil || msg.Type != MsgSubscribe {
			return
		}
		conn.WriteJSON(WSMessage{ID: "other", Type: MsgNext, Payload: []byte(`{"data":{"logout":false}}`)})
		conn.WriteJSON(WSMessage{ID: msg.ID, Type: MsgNext, Payload: []byte(`{"data":{"logout":true}}`)})
		conn.WriteJSON(WSMessage{ID: msg.ID, Type: MsgComplete})
		conn.ReadMessage()
	}))
	defer srv.Close()

	var data map[string]bool
	err := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http")).
		Do(context.Background(), nil, Request{Query: "mutation Logout { logout }"}, &data)
	require.NoError(t, err)
	require.True(t, data["logout"])
}

func TestWSClientRejectsMissingSubprotocol(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer srv.Close()

	err := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http")).
		Do(context.Background(), nil, Request{Query: "mutation Logout { logout }"}, nil)
	require.ErrorContains(t, err, "does not speak")
}

func TestWSClientContextCancel(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Never acknowledge.
		conn.ReadMessage()
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http")).
		Do(ctx, nil, Request{Query: "mutation Logout { logout }"}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
