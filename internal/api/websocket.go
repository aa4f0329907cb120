// websocket.go - Queue protocol over WebSocket
package api

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/models"
)

// WebSocket message types for the queue protocol
const (
	// Client -> Server messages
	MsgTypeQueueAdd     = "queue:add"
	MsgTypeQueueRemove  = "queue:remove"
	MsgTypeQueueClear   = "queue:clear"
	MsgTypeQueueProcess = "queue:process"
	MsgTypeCategorySet  = "category:set"
	MsgTypePing         = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeAck       = "ack"
	MsgTypeEvent     = "event"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// File add payload (single message per file)
type FileAddPayload struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64 encoded file
}

// Item remove payload
type ItemRemovePayload struct {
	ID string `json:"id"`
}

// Category payload
type CategoryPayload struct {
	Category string `json:"category"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler serves the queue protocol over WebSocket
type WebSocketHandler struct {
	workspaces *Workspaces
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket queue handler
func NewWebSocketHandler(workspaces *Workspaces, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		workspaces: workspaces,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: logger.With("component", "websocket"),
	}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteJSON(msg)
}

func (c *wsConn) sendError(id, message, code string) {
	c.send(WSMessage{Type: MsgTypeError, ID: id, Payload: mustJSON(WSErrorResponse{Message: message, Code: code})})
}

func (c *wsConn) ack(id string, result interface{}) {
	c.send(WSMessage{Type: MsgTypeAck, ID: id, Payload: mustJSON(result)})
}

// HandleWebSocket upgrades the connection, relays queue events and executes
// queue commands for the session's workspace
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	w := wsh.workspaces.Get(s.ID, s.Account)

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	conn := &wsConn{ws: ws}

	wsh.logger.Info("client connected", "account", s.Account.Email)

	events, stop := w.Queue.Subscribe()
	defer stop()
	go func() {
		for ev := range events {
			conn.send(WSMessage{Type: MsgTypeEvent, Payload: mustJSON(ev)})
		}
	}()

	conn.send(WSMessage{Type: MsgTypeConnected, Payload: mustJSON(viewOf(w))})

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Warn("connection error", "error", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeQueueAdd:
			wsh.handleAdd(conn, w, msg)
		case MsgTypeQueueRemove:
			wsh.handleRemove(conn, w, msg)
		case MsgTypeQueueClear:
			n, err := w.Queue.ClearCompleted()
			if err != nil {
				conn.sendError(msg.ID, err.Error(), FromError(err).Code)
				continue
			}
			conn.ack(msg.ID, map[string]int{"removed": n})
		case MsgTypeQueueProcess:
			if err := w.StartProcessing(); err != nil {
				conn.sendError(msg.ID, err.Error(), FromError(err).Code)
				continue
			}
			conn.ack(msg.ID, viewOf(w))
		case MsgTypeCategorySet:
			wsh.handleCategory(conn, w, msg)
		default:
			conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	wsh.logger.Info("client disconnected", "account", s.Account.Email)
	return nil
}

func (wsh *WebSocketHandler) handleAdd(conn *wsConn, w *Workspace, msg WSMessage) {
	var payload FileAddPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid add payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.Name == "" {
		conn.sendError(msg.ID, "File name is required", "INVALID_PAYLOAD")
		return
	}
	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		conn.sendError(msg.ID, "Invalid base64 data: "+err.Error(), "INVALID_DATA")
		return
	}

	results := w.Queue.Enqueue(models.NewSourceFile(payload.Name, data))
	conn.ack(msg.ID, results[0])
}

func (wsh *WebSocketHandler) handleRemove(conn *wsConn, w *Workspace, msg WSMessage) {
	var payload ItemRemovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ID == "" {
		conn.sendError(msg.ID, "Invalid remove payload", "INVALID_PAYLOAD")
		return
	}
	if err := w.Queue.Remove(payload.ID); err != nil {
		conn.sendError(msg.ID, err.Error(), FromError(err).Code)
		return
	}
	conn.ack(msg.ID, map[string]string{"removed": payload.ID})
}

func (wsh *WebSocketHandler) handleCategory(conn *wsConn, w *Workspace, msg WSMessage) {
	var payload CategoryPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid category payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	cat, err := models.ParseCategory(payload.Category)
	if err != nil {
		conn.sendError(msg.ID, err.Error(), "INVALID_CATEGORY")
		return
	}
	_ = w.Category.Set(cat)
	conn.ack(msg.ID, map[string]models.Category{"category": cat})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
