package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/mcp-gateway/gateway/internal/mcp"
)

// JSONRPCHandler exposes C7 over a single HTTP POST endpoint: the body is a
// JSON-RPC request or batch, the response is what Server.HandleEnvelope
// returns (nil/empty for an all-notification request, per §6).
type JSONRPCHandler struct {
	server *mcp.Server
	logger *slog.Logger
}

func NewJSONRPCHandler(server *mcp.Server, logger *slog.Logger) *JSONRPCHandler {
	return &JSONRPCHandler{server: server, logger: logger}
}

func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read request body", "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	out := h.server.HandleEnvelope(body)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
