package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mcp-gateway/gateway/internal/tool"
)

// AnthropicAdapter binds the canonical interface to the Anthropic Messages
// API (§4.3): distinct system-prompt channel, `content_block_start` of type
// `tool_use` starting a call, `message_stop` triggering completion.
type AnthropicAdapter struct {
	client *http.Client
}

func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{client: &http.Client{}}
}

func (a *AnthropicAdapter) Name() string                    { return "anthropic" }
func (a *AnthropicAdapter) SupportsFunctionCalling() bool    { return true }
func (a *AnthropicAdapter) SupportsStreaming() bool          { return true }
func (a *AnthropicAdapter) TranslateTools(tools []tool.Tool) any { return tool.ToAnthropic(tools) }

type anthropicRequestBody struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Messages    []any   `json:"messages"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
	Tools       any     `json:"tools,omitempty"`
}

func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req AdapterRequest, cfg ProviderConfig) (<-chan AdapterResponse, error) {
	if mismatch := assertProviderIdentity(a.Name(), cfg); mismatch != nil {
		return nil, mismatch
	}

	endpoint := cfg.APIBase
	if endpoint == "" {
		endpoint = "https://api.anthropic.com/v1/messages"
	}

	messages := make([]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		role := m.Role
		if role == "tool" {
			// Anthropic has no role=tool; tool results are user-role
			// content blocks of type tool_result.
			messages = append(messages, map[string]any{
				"role": "user",
				"content": []any{map[string]any{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content,
				}},
			})
			continue
		}
		entry := map[string]any{"role": role, "content": m.Content}
		messages = append(messages, entry)
	}

	body := anthropicRequestBody{
		Model:       cfg.Model,
		System:      systemPromptOverride(req, cfg),
		Messages:    messages,
		Temperature: effectiveTemperature(req, cfg),
		MaxTokens:   effectiveMaxTokens(req, cfg),
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		body.Tools = tool.ToAnthropic(req.Tools)
	}

	out := make(chan AdapterResponse)
	go a.stream(ctx, endpoint, cfg.APIKey, body, out)
	return out, nil
}

func (a *AnthropicAdapter) stream(ctx context.Context, endpoint, apiKey string, body anthropicRequestBody, out chan<- AdapterResponse) {
	defer close(out)

	payload, err := json.Marshal(body)
	if err != nil {
		out <- AdapterError{Kind: ErrAPIError, Message: fmt.Sprintf("encode request: %v", err)}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultUpstreamTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		out <- AdapterError{Kind: ErrAPIError, Message: fmt.Sprintf("build request: %v", err)}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		out <- *classifyTransportError(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		out <- *classifyHTTPError(resp.StatusCode, string(raw))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		currentToolID   string
		currentToolName string
		usage           *Usage
	)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_start":
			if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
				currentToolID = event.ContentBlock.ID
				currentToolName = event.ContentBlock.Name
			}

		case "content_block_delta":
			if event.Delta == nil {
				continue
			}
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text != "" {
					out <- ContentDelta{Text: event.Delta.Text}
				}
			case "input_json_delta":
				out <- ToolCallDeltas{Fragments: []ToolCallFragment{{
					ID:             currentToolID,
					Name:           currentToolName,
					ArgumentsDelta: event.Delta.PartialJSON,
				}}}
			}

		case "content_block_stop":
			if currentToolID != "" {
				out <- ToolCallDeltas{Fragments: []ToolCallFragment{{
					ID:       currentToolID,
					Name:     currentToolName,
					Terminal: true,
				}}}
				currentToolID = ""
				currentToolName = ""
			}

		case "message_delta":
			if event.Usage != nil {
				usage = &Usage{OutputTokens: event.Usage.OutputTokens}
			}

		case "message_stop":
			out <- Completion{FinishReason: "end_turn", Usage: usage}
			return
		}
	}

	out <- Completion{FinishReason: "end_turn", Usage: usage}
}

func (a *AnthropicAdapter) HealthCheck(ctx context.Context, cfg ProviderConfig) bool {
	if assertProviderIdentity(a.Name(), cfg) != nil {
		return false
	}
	stream, err := a.ChatCompletion(ctx, AdapterRequest{
		Messages:  []Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}, cfg)
	if err != nil {
		return false
	}
	for resp := range stream {
		if _, isErr := resp.(AdapterError); isErr {
			return false
		}
	}
	return true
}

type anthropicStreamEvent struct {
	Type         string                      `json:"type"`
	ContentBlock *anthropicContentBlockStart `json:"content_block,omitempty"`
	Delta        *anthropicStreamDelta       `json:"delta,omitempty"`
	Usage        *anthropicUsage             `json:"usage,omitempty"`
}

type anthropicContentBlockStart struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type anthropicStreamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

type anthropicUsage struct {
	OutputTokens int `json:"output_tokens"`
}
