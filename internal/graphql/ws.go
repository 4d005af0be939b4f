package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// Subprotocol is the WebSocket subprotocol spoken by WSClient.
const Subprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol.
const (
	MsgConnectionInit = "connection_init"
	MsgConnectionAck  = "connection_ack"
	MsgPing           = "ping"
	MsgPong           = "pong"
	MsgSubscribe      = "subscribe"
	MsgNext           = "next"
	MsgError          = "error"
	MsgComplete       = "complete"
)

// WSMessage is one graphql-transport-ws frame.
type WSMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient runs each request as a single-result operation on its own
// WebSocket connection. Cookies from the jar go out on the handshake;
// cookies the server sets after the handshake cannot be received.
type WSClient struct {
	endpoint   string
	userAgent  string
	ackTimeout time.Duration
	logger     hclog.Logger
}

// WSOption configures a WSClient.
type WSOption func(*WSClient)

// WithAckTimeout bounds the handshake and the wait for connection_ack.
func WithAckTimeout(d time.Duration) WSOption {
	return func(c *WSClient) {
		c.ackTimeout = d
	}
}

// WithWSLogger sets the logger.
func WithWSLogger(l hclog.Logger) WSOption {
	return func(c *WSClient) {
		c.logger = l
	}
}

// WithWSUserAgent sets the User-Agent sent on the handshake.
func WithWSUserAgent(ua string) WSOption {
	return func(c *WSClient) {
		c.userAgent = ua
	}
}

// NewWSClient creates a client for a ws:// or wss:// endpoint.
func NewWSClient(endpoint string, opts ...WSOption) *WSClient {
	c := &WSClient{
		endpoint:   endpoint,
		userAgent:  defaultUserAgent,
		ackTimeout: defaultTimeout,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the WebSocket endpoint URL.
func (c *WSClient) Endpoint() string {
	return c.endpoint
}

// Do runs req and decodes the single result's data into dst.
func (c *WSClient) Do(ctx context.Context, jar http.CookieJar, req Request, dst any) error {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.ackTimeout,
		Subprotocols:     []string{Subprotocol},
		Jar:              jar,
	}
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dialing %s: %w", c.endpoint, &StatusError{Code: resp.StatusCode})
		}
		return fmt.Errorf("dialing %s: %w", c.endpoint, err)
	}
	defer conn.Close()

	if conn.Subprotocol() != Subprotocol {
		return fmt.Errorf("server at %s does not speak %s", c.endpoint, Subprotocol)
	}

	// Unblock reads when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(WSMessage{Type: MsgConnectionInit}); err != nil {
		return fmt.Errorf("sending %s: %w", MsgConnectionInit, err)
	}
	conn.SetReadDeadline(time.Now().Add(c.ackTimeout))
	if err := awaitAck(conn); err != nil {
		return c.readErr(ctx, err)
	}
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	id := uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	if err := conn.WriteJSON(WSMessage{ID: id, Type: MsgSubscribe, Payload: payload}); err != nil {
		return fmt.Errorf("sending %s: %w", MsgSubscribe, err)
	}
	c.logger.Debug("graphql ws subscribe", "operation", req.OperationName, "id", id)

	var result *Response
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return c.readErr(ctx, err)
		}
		if msg.Type == MsgPing {
			if err := conn.WriteJSON(WSMessage{Type: MsgPong}); err != nil {
				return fmt.Errorf("sending %s: %w", MsgPong, err)
			}
			continue
		}
		if msg.ID != id {
			continue
		}

		switch msg.Type {
		case MsgNext:
			var r Response
			if err := json.Unmarshal(msg.Payload, &r); err != nil {
				return fmt.Errorf("decoding %s result: %w", req.OperationName, err)
			}
			result = &r
		case MsgError:
			var errs []Error
			if err := json.Unmarshal(msg.Payload, &errs); err != nil {
				return fmt.Errorf("decoding %s errors: %w", req.OperationName, err)
			}
			return &ResponseError{Errors: errs}
		case MsgComplete:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if result == nil {
				return fmt.Errorf("%s completed without a result", req.OperationName)
			}
			return decode(result, dst)
		}
	}
}

func (c *WSClient) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Text != "" {
		return fmt.Errorf("connection closed: %s", closeErr.Text)
	}
	return fmt.Errorf("reading from %s: %w", c.endpoint, err)
}

func awaitAck(conn *websocket.Conn) error {
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case MsgConnectionAck:
			return nil
		case MsgPing:
			if err := conn.WriteJSON(WSMessage{Type: MsgPong}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %q before %s", msg.Type, MsgConnectionAck)
		}
	}
}
