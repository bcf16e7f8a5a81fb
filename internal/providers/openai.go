package providers

import (
	"context"
	"net/http"

	"github.com/mcp-gateway/gateway/internal/tool"
)

// OpenAIAdapter binds the canonical chat/tool interface to OpenAI's chat
// completions API (§4.3).
type OpenAIAdapter struct {
	client *http.Client
}

func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{client: &http.Client{}}
}

func (a *OpenAIAdapter) Name() string                    { return "openai" }
func (a *OpenAIAdapter) SupportsFunctionCalling() bool    { return true }
func (a *OpenAIAdapter) SupportsStreaming() bool          { return true }
func (a *OpenAIAdapter) TranslateTools(tools []tool.Tool) any { return tool.ToOpenAI(tools) }

func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req AdapterRequest, cfg ProviderConfig) (<-chan AdapterResponse, error) {
	if mismatch := assertProviderIdentity(a.Name(), cfg); mismatch != nil {
		return nil, mismatch
	}

	endpoint := cfg.APIBase
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	body := openAICompatibleRequestBody{
		Model:       cfg.Model,
		Messages:    buildOpenAICompatibleMessages(req, systemPromptOverride(req, cfg)),
		Temperature: effectiveTemperature(req, cfg),
		MaxTokens:   effectiveMaxTokens(req, cfg),
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		body.Tools = tool.ToOpenAI(req.Tools)
		if !req.DisableToolChoice {
			body.ToolChoice = "auto"
		}
	}

	out := make(chan AdapterResponse)
	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	go streamOpenAICompatible(ctx, a.client, endpoint, headers, body, out)
	return out, nil
}

func (a *OpenAIAdapter) HealthCheck(ctx context.Context, cfg ProviderConfig) bool {
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

// systemPromptOverride prefers the request's override, falling back to the
// provider record's stored system prompt (§3 AdapterRequest).
func systemPromptOverride(req AdapterRequest, cfg ProviderConfig) string {
	if req.SystemPrompt != "" {
		return req.SystemPrompt
	}
	return cfg.SystemPrompt
}

func effectiveTemperature(req AdapterRequest, cfg ProviderConfig) float64 {
	if req.Temperature != 0 {
		return req.Temperature
	}
	return cfg.Temperature
}

func effectiveMaxTokens(req AdapterRequest, cfg ProviderConfig) int {
	if req.MaxTokens != 0 {
		return req.MaxTokens
	}
	return cfg.MaxTokens
}
