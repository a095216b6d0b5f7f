package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/version"
)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is the JSON-RPC style frame. The id is an opaque correlation
// token echoed back verbatim; requests without one are fire-and-forget.
type wsMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleWebSocket upgrades the connection and runs its read loop. Auth
// already happened in the middleware, before the upgrade. Each connection
// is isolated: a failure here never touches other connections.
func (s *State) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("gateway", "websocket upgrade failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	s.serveConn(conn)
}

func (s *State) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	logger.InfoC("gateway", "websocket client connected")

	hello := wsMessage{
		Method: "gateway.hello",
		Params: mustMarshal(map[string]any{
			"version":  version.Version,
			"protocol": version.ProtocolVersion,
			"engine":   version.Engine,
		}),
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.ErrorCF("gateway", "failed to send hello", map[string]any{
			"error": err.Error(),
		})
		return
	}

	// Ping control frames are answered with a matching pong by the
	// connection's default ping handler inside ReadMessage.
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			logger.InfoC("gateway", "websocket client disconnected")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Parse failed before the id could be read, so the error
			// response carries no correlation.
			conn.WriteJSON(wsMessage{
				Error: &wsError{Code: codeParseError, Message: "Parse error"},
			})
			continue
		}

		if err := conn.WriteJSON(s.dispatch(&msg)); err != nil {
			logger.WarnCF("gateway", "failed to send response", map[string]any{
				"error": err.Error(),
			})
			return
		}
	}
}

// dispatch routes one frame through the method table. Responses carry
// either result or error, never both.
func (s *State) dispatch(msg *wsMessage) wsMessage {
	var result any
	switch msg.Method {
	case "gateway.status":
		result = map[string]any{
			"status":   "running",
			"version":  version.Version,
			"uptime":   s.UptimeSeconds(),
			"sessions": s.Sessions.Count(),
		}
	case "gateway.health":
		result = map[string]any{"status": "ok"}
	case "sessions.list":
		result = map[string]any{"sessions": s.Sessions.ListKeys()}
	case "config.get":
		result = s.Config.Sanitized()
	case "tools.list":
		defs := s.Registry.Definitions()
		names := make([]string, 0, len(defs))
		for _, d := range defs {
			names = append(names, d.Name)
		}
		result = map[string]any{"tools": names}
	default:
		return wsMessage{
			ID: msg.ID,
			Error: &wsError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			},
		}
	}

	return wsMessage{ID: msg.ID, Result: result}
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
