package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcp-gateway/gateway/internal/chat"
	"github.com/mcp-gateway/gateway/internal/providers"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// turnRequest is one client chat transport message: a user message plus the
// prior turn history, per §6.
type turnRequest struct {
	RequestID string              `json:"request_id"`
	Message   string              `json:"message"`
	History   []providers.Message `json:"history"`
}

// ChatHandler runs one orchestrator turn per inbound client chat transport
// message and streams Frames back over the same connection, one JSON object
// per frame, until StatusComplete/StatusError.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	logger       *slog.Logger
}

func NewChatHandler(orchestrator *chat.Orchestrator, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, logger: logger}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("chat upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req turnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("chat connection closed unexpectedly", "error", err)
			}
			return
		}

		if err := h.runTurn(conn, req); err != nil {
			h.logger.Error("chat turn failed", "request_id", req.RequestID, "error", err)
			return
		}
	}
}

func (h *ChatHandler) runTurn(conn *websocket.Conn, req turnRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	out := make(chan chat.Frame, 16)
	go h.orchestrator.RunTurn(ctx, req.RequestID, req.History, req.Message, out)

	// RunTurn does not close out (a caller-owned channel it only ever
	// sends on); stop reading once it emits the turn's terminal frame.
	for frame := range out {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
		if frame.Status == chat.StatusComplete || frame.Status == chat.StatusError {
			return nil
		}
	}

	return nil
}
