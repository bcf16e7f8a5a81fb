package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicAdapter_ChatCompletion_TextAndToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"content_block_start","content_block":{"type":"text"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"hi there"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_stop"}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_start","content_block":{"type":"tool_use","id":"call_1","name":"ai_configure"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"a\":1}"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_stop"}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"message_delta","usage":{"output_tokens":7}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	cfg := ProviderConfig{Provider: "anthropic", Model: "claude-3-5-sonnet", APIBase: server.URL, APIKey: "sk-ant-test"}

	stream, err := adapter.ChatCompletion(context.Background(), AdapterRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, cfg)
	require.NoError(t, err)

	merger := NewMerger()
	var text string
	var completed []CompletedToolCall
	var completion *Completion
	for resp := range stream {
		switch v := resp.(type) {
		case ContentDelta:
			text += v.Text
		case ToolCallDeltas:
			completed = append(completed, merger.Ingest(v.Fragments[0])...)
		case Completion:
			c := v
			completion = &c
		}
	}

	assert.Equal(t, "hi there", text)
	require.Len(t, completed, 1)
	assert.Equal(t, "call_1", completed[0].ID)
	assert.Equal(t, "ai_configure", completed[0].Name)
	assert.Equal(t, `{"a":1}`, completed[0].Arguments)
	require.NotNil(t, completion)
	assert.Equal(t, 7, completion.Usage.OutputTokens)
}

func TestAnthropicAdapter_ChatCompletion_ToolResultMessageMapping(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = httptestDecode(r, &body)
		captured = body
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	cfg := ProviderConfig{Provider: "anthropic", Model: "claude-3-5-sonnet", APIBase: server.URL, APIKey: "sk-ant-test"}

	stream, err := adapter.ChatCompletion(context.Background(), AdapterRequest{
		Messages: []Message{
			{Role: "user", Content: "set temp"},
			{Role: "tool", ToolCallID: "call_1", Content: `{"status":"ok"}`},
		},
	}, cfg)
	require.NoError(t, err)
	for range stream {
	}

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	toolMsg := messages[1].(map[string]any)
	assert.Equal(t, "user", toolMsg["role"])
}

func TestAnthropicAdapter_ChatCompletion_ProviderMismatch(t *testing.T) {
	adapter := NewAnthropicAdapter()
	cfg := ProviderConfig{Provider: "openai"}
	_, err := adapter.ChatCompletion(context.Background(), AdapterRequest{}, cfg)
	require.Error(t, err)
}
