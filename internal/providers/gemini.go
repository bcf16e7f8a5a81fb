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

// GeminiAdapter binds the canonical interface to the Gemini
// generateContent/streamGenerateContent API (§4.3): separate
// messages-vs-history decomposition, system instruction set at request
// construction time, token usage not reported mid-stream.
type GeminiAdapter struct {
	client *http.Client
}

func NewGeminiAdapter() *GeminiAdapter {
	return &GeminiAdapter{client: &http.Client{}}
}

func (a *GeminiAdapter) Name() string                    { return "gemini" }
func (a *GeminiAdapter) SupportsFunctionCalling() bool    { return true }
func (a *GeminiAdapter) SupportsStreaming() bool          { return true }
func (a *GeminiAdapter) TranslateTools(tools []tool.Tool) any { return tool.ToGemini(tools) }

type geminiContentPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFnCall   `json:"functionCall,omitempty"`
	FunctionResponse *geminiFnResult `json:"functionResponse,omitempty"`
}

type geminiFnCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFnResult struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

type geminiRequestContent struct {
	Role  string              `json:"role"`
	Parts []geminiContentPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiRequestBody struct {
	Contents          []geminiRequestContent   `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
	Tools             any                      `json:"tools,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

func (a *GeminiAdapter) ChatCompletion(ctx context.Context, req AdapterRequest, cfg ProviderConfig) (<-chan AdapterResponse, error) {
	if mismatch := assertProviderIdentity(a.Name(), cfg); mismatch != nil {
		return nil, mismatch
	}

	base := cfg.APIBase
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	endpoint := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s", base, cfg.Model, cfg.APIKey)

	body := geminiRequestBody{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     effectiveTemperature(req, cfg),
			MaxOutputTokens: effectiveMaxTokens(req, cfg),
		},
	}

	if prompt := systemPromptOverride(req, cfg); prompt != "" {
		body.SystemInstruction = &geminiSystemInstruction{Parts: []geminiContentPart{{Text: prompt}}}
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		if m.Role == "tool" {
			body.Contents = append(body.Contents, geminiRequestContent{
				Role:  "function",
				Parts: []geminiContentPart{{FunctionResponse: &geminiFnResult{Name: m.ToolCallID, Response: m.Content}}},
			})
			continue
		}
		body.Contents = append(body.Contents, geminiRequestContent{Role: role, Parts: []geminiContentPart{{Text: m.Content}}})
	}

	if len(req.Tools) > 0 {
		body.Tools = tool.ToGemini(req.Tools)
	}

	out := make(chan AdapterResponse)
	go a.stream(ctx, endpoint, body, out)
	return out, nil
}

func (a *GeminiAdapter) stream(ctx context.Context, endpoint string, body geminiRequestBody, out chan<- AdapterResponse) {
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

	var finishReason string

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			out <- AdapterError{Kind: ErrAPIError, Message: chunk.Error.Message}
			return
		}
		if len(chunk.Candidates) == 0 {
			continue
		}

		candidate := chunk.Candidates[0]
		if candidate.FinishReason != "" {
			finishReason = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}

		// Gemini fragments carry no id/index and are always self-complete
		// (§4.2): every functionCall part is emitted terminal immediately.
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out <- ContentDelta{Text: part.Text}
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				out <- ToolCallDeltas{Fragments: []ToolCallFragment{{
					Name:           part.FunctionCall.Name,
					ArgumentsDelta: string(args),
					Terminal:       true,
				}}}
			}
		}
	}

	if finishReason == "" {
		finishReason = "STOP"
	}
	out <- Completion{FinishReason: finishReason}
}

func (a *GeminiAdapter) HealthCheck(ctx context.Context, cfg ProviderConfig) bool {
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

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates,omitempty"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content,omitempty"`
	FinishReason string         `json:"finishReason,omitempty"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts,omitempty"`
	Role  string              `json:"role,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
