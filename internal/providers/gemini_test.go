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

func TestGeminiAdapter_ChatCompletion_TextThenFunctionCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"text":"hi"}],"role":"model"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"functionCall":{"name":"ai_configure","args":{"a":1}}}]},"finishReason":"STOP"}]}`+"\n\n")
	}))
	defer server.Close()

	adapter := NewGeminiAdapter()
	cfg := ProviderConfig{Provider: "gemini", Model: "gemini-1.5-pro", APIBase: server.URL, APIKey: "key-test"}

	stream, err := adapter.ChatCompletion(context.Background(), AdapterRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, cfg)
	require.NoError(t, err)

	var text string
	var fragments []ToolCallFragment
	var completion *Completion
	for resp := range stream {
		switch v := resp.(type) {
		case ContentDelta:
			text += v.Text
		case ToolCallDeltas:
			fragments = append(fragments, v.Fragments...)
		case Completion:
			c := v
			completion = &c
		}
	}

	assert.Equal(t, "hi", text)
	require.Len(t, fragments, 1)
	assert.True(t, fragments[0].Terminal)
	assert.Equal(t, "ai_configure", fragments[0].Name)
	require.NotNil(t, completion)
	assert.Equal(t, "STOP", completion.FinishReason)
}

func TestGeminiAdapter_ChatCompletion_ErrorEventAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"error":{"code":400,"message":"bad request"}}`+"\n\n")
	}))
	defer server.Close()

	adapter := NewGeminiAdapter()
	cfg := ProviderConfig{Provider: "gemini", Model: "gemini-1.5-pro", APIBase: server.URL, APIKey: "key-test"}

	stream, err := adapter.ChatCompletion(context.Background(), AdapterRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, cfg)
	require.NoError(t, err)

	var got AdapterResponse
	for resp := range stream {
		got = resp
	}
	adapterErr, ok := got.(AdapterError)
	require.True(t, ok)
	assert.Equal(t, "bad request", adapterErr.Message)
}

func TestGeminiAdapter_ChatCompletion_ToolResultMapsToFunctionRole(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httptestDecode(r, &captured)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"candidates":[{"finishReason":"STOP"}]}`+"\n\n")
	}))
	defer server.Close()

	adapter := NewGeminiAdapter()
	cfg := ProviderConfig{Provider: "gemini", Model: "gemini-1.5-pro", APIBase: server.URL, APIKey: "key-test"}

	stream, err := adapter.ChatCompletion(context.Background(), AdapterRequest{
		Messages: []Message{
			{Role: "user", Content: "set temp"},
			{Role: "tool", ToolCallID: "ai_configure", Content: `{"status":"ok"}`},
		},
	}, cfg)
	require.NoError(t, err)
	for range stream {
	}

	contents := captured["contents"].([]any)
	require.Len(t, contents, 2)
	toolContent := contents[1].(map[string]any)
	assert.Equal(t, "function", toolContent["role"])
}

func TestGeminiAdapter_ChatCompletion_ProviderMismatch(t *testing.T) {
	adapter := NewGeminiAdapter()
	cfg := ProviderConfig{Provider: "openai"}
	_, err := adapter.ChatCompletion(context.Background(), AdapterRequest{}, cfg)
	require.Error(t, err)
}
