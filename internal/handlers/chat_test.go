package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/gateway/internal/chat"
	"github.com/mcp-gateway/gateway/internal/config"
	"github.com/mcp-gateway/gateway/internal/mcp"
	"github.com/mcp-gateway/gateway/internal/providers"
	"github.com/mcp-gateway/gateway/internal/tool"
	"github.com/mcp-gateway/gateway/internal/tool/builtin"
)

type fakeAdapter struct{ name string }

func (a *fakeAdapter) Name() string                          { return a.name }
func (a *fakeAdapter) SupportsFunctionCalling() bool          { return true }
func (a *fakeAdapter) SupportsStreaming() bool                { return true }
func (a *fakeAdapter) TranslateTools(tools []tool.Tool) any   { return tools }
func (a *fakeAdapter) HealthCheck(ctx context.Context, cfg providers.ProviderConfig) bool {
	return true
}

func (a *fakeAdapter) ChatCompletion(ctx context.Context, req providers.AdapterRequest, cfg providers.ProviderConfig) (<-chan providers.AdapterResponse, error) {
	out := make(chan providers.AdapterResponse, 2)
	out <- providers.ContentDelta{Text: "hi there"}
	out <- providers.Completion{FinishReason: "stop"}
	close(out)
	return out, nil
}

func newTestOrchestrator(t *testing.T) *chat.Orchestrator {
	t.Helper()
	manager := config.NewManager(t.TempDir())
	_, err := manager.Load()
	require.NoError(t, err)
	auth := config.NewAuthority(manager)

	registry := tool.NewRegistry()
	builtin.RegisterAll(registry, auth)

	providerRegistry := providers.NewRegistry()
	providerRegistry.Register(&fakeAdapter{name: "openai"})

	server := mcp.NewServer(registry, mcp.ServerInfo{Name: "test", Version: "0"}, testLogger())

	return chat.NewOrchestrator(auth, providerRegistry, server, testLogger())
}

func TestChatHandler_StreamsFramesUntilComplete(t *testing.T) {
	h := NewChatHandler(newTestOrchestrator(t), testLogger())

	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"request_id": "req-1",
		"message":    "hello",
	}))

	var frames []chat.Frame
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f chat.Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("reading frames: %v", err)
		}
		frames = append(frames, f)
		if f.Status == chat.StatusComplete || f.Status == chat.StatusError {
			break
		}
	}

	assert.Equal(t, chat.StatusComplete, frames[len(frames)-1].Status)
}
