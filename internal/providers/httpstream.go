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
	"time"

	"github.com/andybalholm/brotli"
)

// DefaultUpstreamTimeout is the per-request timeout named in §5 ("default
// 60s") applied to every adapter's upstream call unless the caller's context
// already carries a tighter deadline.
const DefaultUpstreamTimeout = 60 * time.Second

// openAICompatibleRequestBody is the wire shape OpenAI, OpenRouter and the
// NIM-based Nvidia endpoint share.
type openAICompatibleRequestBody struct {
	Model       string  `json:"model"`
	Messages    []any   `json:"messages"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream"`
	Tools       any     `json:"tools,omitempty"`
	ToolChoice  string  `json:"tool_choice,omitempty"`
}

func buildOpenAICompatibleMessages(req AdapterRequest, systemPrompt string) []any {
	messages := make([]any, 0, len(req.Messages)+1)
	if systemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": systemPrompt})
	}
	for _, m := range req.Messages {
		entry := map[string]any{"role": m.Role, "content": m.Content}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]any, 0, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   c.ID,
					"type": "function",
					"function": map[string]any{
						"name":      c.Name,
						"arguments": c.Arguments,
					},
				})
			}
			entry["tool_calls"] = calls
		}
		messages = append(messages, entry)
	}
	return messages
}

// streamOpenAICompatible issues the request and decodes SSE `data: ` lines
// into the canonical AdapterResponse sequence. Tool-call fragments are
// forwarded as ToolCallDeltas for C8 to pass through its own Merger (C2);
// the adapter itself never reassembles them. Handles brotli-encoded bodies
// the same way as any OpenAI-compatible upstream that compresses responses.
func streamOpenAICompatible(ctx context.Context, client *http.Client, url string, headers map[string]string, body openAICompatibleRequestBody, out chan<- AdapterResponse) {
	defer close(out)

	payload, err := json.Marshal(body)
	if err != nil {
		out <- AdapterError{Kind: ErrAPIError, Message: fmt.Sprintf("encode request: %v", err)}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultUpstreamTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		out <- AdapterError{Kind: ErrAPIError, Message: fmt.Sprintf("build request: %v", err)}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Encoding", "br, gzip")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		out <- *classifyTransportError(err)
		return
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		reader = brotli.NewReader(resp.Body)
	}

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(reader)
		out <- *classifyHTTPError(resp.StatusCode, string(raw))
		return
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var usage *Usage

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			usage = &Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta != nil {
			if choice.Delta.Content != "" {
				out <- ContentDelta{Text: choice.Delta.Content}
			}
			if len(choice.Delta.ToolCalls) > 0 {
				fragments := make([]ToolCallFragment, 0, len(choice.Delta.ToolCalls))
				for _, tc := range choice.Delta.ToolCalls {
					fragments = append(fragments, ToolCallFragment{
						ID:             tc.ID,
						Index:          tc.Index,
						Name:           tc.Function.Name,
						ArgumentsDelta: tc.Function.Arguments,
					})
				}
				out <- ToolCallDeltas{Fragments: fragments}
			}
		}

		if choice.FinishReason != "" {
			out <- Completion{FinishReason: choice.FinishReason, Usage: usage}
			return
		}
	}

	out <- Completion{FinishReason: "stop", Usage: usage}
}

type openAIStreamChunk struct {
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *openAIUsage         `json:"usage,omitempty"`
}

type openAIStreamChoice struct {
	Delta        *openAIStreamDelta `json:"delta,omitempty"`
	FinishReason string             `json:"finish_reason,omitempty"`
}

type openAIStreamDelta struct {
	Content   string                  `json:"content,omitempty"`
	ToolCalls []openAIStreamToolCall  `json:"tool_calls,omitempty"`
}

type openAIStreamToolCall struct {
	Index    *int                 `json:"index,omitempty"`
	ID       string               `json:"id,omitempty"`
	Function openAIStreamFunction `json:"function"`
}

type openAIStreamFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}
