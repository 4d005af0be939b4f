package authtest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// handleWS serves graphql-transport-ws. The refresh cookie is read from the
// handshake; cookies issued by operations cannot reach the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}
	var refresh string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	acked := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "connection_init":
			acked = true
			if err := conn.WriteJSON(wsMessage{Type: "connection_ack"}); err != nil {
				return
			}
		case "ping":
			if err := conn.WriteJSON(wsMessage{Type: "pong"}); err != nil {
				return
			}
		case "subscribe":
			if !acked {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(4401, "Unauthorized"))
				return
			}
			if err := s.serveSubscribe(conn, msg, refresh); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveSubscribe(conn *websocket.Conn, msg wsMessage, refresh string) error {
	var req request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return conn.WriteJSON(errorMessage(msg.ID, "malformed subscribe payload"))
	}

	out := s.execute(req, refresh)
	if out.invalid {
		return conn.WriteJSON(errorMessage(msg.ID, out.resp.Errors[0].Message))
	}

	payload, err := json.Marshal(out.resp)
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(wsMessage{ID: msg.ID, Type: "next", Payload: payload}); err != nil {
		return err
	}
	return conn.WriteJSON(wsMessage{ID: msg.ID, Type: "complete"})
}

func errorMessage(id, message string) wsMessage {
	payload, _ := json.Marshal([]gqlError{{Message: message}})
	return wsMessage{ID: id, Type: "error", Payload: payload}
}
