package providers

import (
	"context"
	"net/http"

	"github.com/mcp-gateway/gateway/internal/tool"
)

// OpenRouterAdapter binds the canonical interface to OpenRouter's
// OpenAI-compatible endpoint (§4.3).
type OpenRouterAdapter struct {
	client *http.Client
}

func NewOpenRouterAdapter() *OpenRouterAdapter {
	return &OpenRouterAdapter{client: &http.Client{}}
}

func (a *OpenRouterAdapter) Name() string                    { return "openrouter" }
func (a *OpenRouterAdapter) SupportsFunctionCalling() bool    { return true }
func (a *OpenRouterAdapter) SupportsStreaming() bool          { return true }
func (a *OpenRouterAdapter) TranslateTools(tools []tool.Tool) any { return tool.ToOpenAI(tools) }

func (a *OpenRouterAdapter) ChatCompletion(ctx context.Context, req AdapterRequest, cfg ProviderConfig) (<-chan AdapterResponse, error) {
	if mismatch := assertProviderIdentity(a.Name(), cfg); mismatch != nil {
		return nil, mismatch
	}

	endpoint := cfg.APIBase
	if endpoint == "" {
		endpoint = "https://openrouter.ai/api/v1/chat/completions"
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
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
		"HTTP-Referer":  "https://github.com/mcp-gateway/gateway",
		"X-Title":       "mcp-gateway",
	}
	go streamOpenAICompatible(ctx, a.client, endpoint, headers, body, out)
	return out, nil
}

func (a *OpenRouterAdapter) HealthCheck(ctx context.Context, cfg ProviderConfig) bool {
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
