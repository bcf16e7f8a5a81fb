package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/gateway/internal/notify"
)

func TestNotificationsHandler_BroadcastDeliveredToClient(t *testing.T) {
	fanout := notify.NewFanOut(testLogger())
	h := NewNotificationsHandler(fanout, testLogger())

	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to subscribe before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for fanout.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, fanout.Count())

	fanout.Broadcast("configuration/changed", map[string]any{"provider": "openai"})

	var received envelope
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, "2.0", received.JSONRPC)
	assert.Equal(t, "configuration/changed", received.Method)
}
