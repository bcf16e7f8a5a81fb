package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcp-gateway/gateway/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var notificationsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NotificationsHandler upgrades to a websocket and relays every C9 broadcast
// to the connected client until it disconnects, per §6's subscription
// endpoint. Grounded on the idiomatic gorilla/websocket read/write-pump
// split (see DESIGN.md): a read pump that only exists to detect client
// close/pong, and a write pump that drains the subscriber's mailbox.
type NotificationsHandler struct {
	fanout *notify.FanOut
	logger *slog.Logger
}

func NewNotificationsHandler(fanout *notify.FanOut, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{fanout: fanout, logger: logger}
}

func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := notificationsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("notifications upgrade failed", "error", err)
		return
	}

	sub := h.fanout.Subscribe()
	defer h.fanout.Unsubscribe(sub)

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, done)
}

// readPump's only job is to notice the client going away; it discards
// anything the client sends since the notifications channel is one-way.
func (h *NotificationsHandler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *NotificationsHandler) writePump(conn *websocket.Conn, sub *notify.Subscriber, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case msg, ok := <-sub.Receive():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(envelope{JSONRPC: "2.0", Method: msg.Method, Params: msg.Params}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// envelope is the wire shape of a JSON-RPC notification object (§3): no id,
// literal "2.0" version string.
type envelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}
