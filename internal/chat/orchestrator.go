// Package chat implements the chat orchestrator (C8): the single
// end-to-end turn algorithm from streaming an adapter response, through
// in-process tool dispatch via C7, to a continuation turn with tools
// disabled.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/mcp-gateway/gateway/internal/config"
	"github.com/mcp-gateway/gateway/internal/mcp"
	"github.com/mcp-gateway/gateway/internal/providers"
)

// FrameStatus enumerates the client chat transport's frame kinds (§6).
type FrameStatus string

const (
	StatusProcessing FrameStatus = "processing"
	StatusChunk      FrameStatus = "chunk"
	StatusComplete   FrameStatus = "complete"
	StatusError      FrameStatus = "error"
)

// Frame is one response frame the orchestrator emits on the client chat
// transport: `{request_id, status, chunk?, error?}`.
type Frame struct {
	RequestID string      `json:"request_id"`
	Status    FrameStatus `json:"status"`
	Chunk     *Chunk      `json:"chunk,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Chunk carries one streamed fragment of assistant content.
type Chunk struct {
	Content string `json:"content"`
}

// Orchestrator drives chat turns against the active provider, resolved
// fresh from C4 on every turn (never cached, matching the adapters'
// own "config read every call" rule).
type Orchestrator struct {
	auth      *config.Authority
	providers *providers.Registry
	mcp       *mcp.Server
	encoding  *tiktoken.Tiktoken
	logger    *slog.Logger
}

func NewOrchestrator(auth *config.Authority, registry *providers.Registry, server *mcp.Server, logger *slog.Logger) *Orchestrator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &Orchestrator{auth: auth, providers: registry, mcp: server, encoding: enc, logger: logger}
}

// countTokens gives a best-effort token estimate for logging/diagnostics;
// a nil encoding (tiktoken init failed) degrades to a length heuristic (one
// token per four bytes) rather than failing the turn, since token accounting is not on the
// correctness path.
func (o *Orchestrator) countTokens(text string) int {
	if o.encoding == nil {
		return len(text) / 4
	}
	return len(o.encoding.Encode(text, nil, nil))
}

// RunTurn executes steps 1-7 of §4.8 for one user message, emitting Frames
// to out until exactly one of StatusComplete/StatusError is sent.
func (o *Orchestrator) RunTurn(ctx context.Context, requestID string, history []providers.Message, userMessage string, out chan<- Frame) {
	out <- Frame{RequestID: requestID, Status: StatusProcessing}

	active, err := o.auth.ReadActive()
	if err != nil {
		out <- Frame{RequestID: requestID, Status: StatusError, Error: "no active provider: " + err.Error()}
		return
	}

	adapter, ok := o.providers.Get(active.Provider)
	if !ok {
		out <- Frame{RequestID: requestID, Status: StatusError, Error: "adapter unavailable for provider: " + active.Provider}
		return
	}

	cfg := providers.ProviderConfig{
		Provider:     active.Provider,
		Model:        active.Model,
		Temperature:  active.Temperature,
		MaxTokens:    active.MaxTokens,
		SystemPrompt: active.SystemPrompt,
	}

	messages := append(append([]providers.Message{}, history...), providers.Message{Role: "user", Content: userMessage})
	o.logger.Debug("starting chat turn", "request_id", requestID, "provider", active.Provider, "input_tokens_estimate", o.countTokens(userMessage))

	toolList := o.mcp.ToolList()

	firstReq := providers.AdapterRequest{Messages: messages, Tools: toolList}
	stream, err := adapter.ChatCompletion(ctx, firstReq, cfg)
	if err != nil {
		out <- Frame{RequestID: requestID, Status: StatusError, Error: err.Error()}
		return
	}

	merger := providers.NewMerger()
	var assistantContent string
	var completedCalls []providers.CompletedToolCall

	for resp := range stream {
		switch v := resp.(type) {
		case providers.ContentDelta:
			assistantContent += v.Text
			out <- Frame{RequestID: requestID, Status: StatusChunk, Chunk: &Chunk{Content: v.Text}}
		case providers.ToolCallDeltas:
			for _, frag := range v.Fragments {
				completedCalls = append(completedCalls, merger.Ingest(frag)...)
			}
		case providers.Completion:
			completedCalls = append(completedCalls, merger.FinalizeRemaining()...)
		case providers.AdapterError:
			out <- Frame{RequestID: requestID, Status: StatusError, Error: v.Message}
			return
		}
	}

	if len(completedCalls) == 0 {
		out <- Frame{RequestID: requestID, Status: StatusComplete}
		return
	}

	o.runContinuation(ctx, requestID, adapter, cfg, messages, assistantContent, completedCalls, out)
}

// runContinuation implements steps 5-7: dispatch each completed tool call
// in-process through C7, build the continuation conversation, and issue a
// second adapter call with tools disabled.
func (o *Orchestrator) runContinuation(
	ctx context.Context,
	requestID string,
	adapter providers.Adapter,
	cfg providers.ProviderConfig,
	priorMessages []providers.Message,
	assistantContent string,
	calls []providers.CompletedToolCall,
	out chan<- Frame,
) {
	toolResults := make([]providers.Message, 0, len(calls))
	for _, call := range calls {
		resultText := o.dispatchToolCall(call)
		toolResults = append(toolResults, providers.Message{
			Role:       "tool",
			Content:    resultText,
			ToolCallID: call.ID,
		})
	}

	continuation := append(append([]providers.Message{}, priorMessages...), providers.Message{
		Role:      "assistant",
		Content:   assistantContent,
		ToolCalls: calls,
	})
	continuation = append(continuation, toolResults...)

	req := providers.AdapterRequest{Messages: continuation, DisableToolChoice: true}
	stream, err := adapter.ChatCompletion(ctx, req, cfg)
	if err != nil {
		out <- Frame{RequestID: requestID, Status: StatusError, Error: err.Error()}
		return
	}

	for resp := range stream {
		switch v := resp.(type) {
		case providers.ContentDelta:
			out <- Frame{RequestID: requestID, Status: StatusChunk, Chunk: &Chunk{Content: v.Text}}
		case providers.AdapterError:
			out <- Frame{RequestID: requestID, Status: StatusError, Error: v.Message}
			return
		case providers.Completion:
			out <- Frame{RequestID: requestID, Status: StatusComplete}
			return
		}
	}

	out <- Frame{RequestID: requestID, Status: StatusComplete}
}

// dispatchToolCall synthesizes a tools/call JSON-RPC request and dispatches
// it through C7 in-process, per §4.8 step 5. A failed execution yields the
// fixed "Tool execution failed: <reason>" string rather than aborting the
// turn.
func (o *Orchestrator) dispatchToolCall(call providers.CompletedToolCall) string {
	args := parseToolArguments(call.Arguments)

	params := struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}{Name: call.Name, Arguments: args}
	paramsJSON, _ := json.Marshal(params)

	msg := mcp.Message{
		JSONRPC: "2.0",
		ID:      requestIDPtr(mcp.NewRequestID(uuid.NewString())),
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp, _ := o.mcp.Dispatch(msg)
	if resp.Error != nil {
		return fmt.Sprintf("Tool execution failed: %s", resp.Error.Message)
	}

	encoded, err := json.Marshal(resp.Result)
	if err != nil {
		return "Tool execution failed: could not encode result"
	}
	return string(encoded)
}

// parseToolArguments decodes a tool call's raw JSON arguments string; an
// unparseable string is wrapped as {"request": <original>} per §4.8.
func parseToolArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"request": raw}
	}
	return args
}

func requestIDPtr(id mcp.RequestID) *mcp.RequestID { return &id }
