package providers

import (
	"context"
	"net/http"

	"github.com/mcp-gateway/gateway/internal/tool"
)

// NvidiaAdapter binds the canonical interface to Nvidia's NIM
// OpenAI-compatible endpoint (§4.3), the fifth adapter supplementing the
// spec's four canonical providers.
type NvidiaAdapter struct {
	client *http.Client
}

func NewNvidiaAdapter() *NvidiaAdapter {
	return &NvidiaAdapter{client: &http.Client{}}
}

func (a *NvidiaAdapter) Name() string                    { return "nvidia" }
func (a *NvidiaAdapter) SupportsFunctionCalling() bool    { return true }
func (a *NvidiaAdapter) SupportsStreaming() bool          { return true }
func (a *NvidiaAdapter) TranslateTools(tools []tool.Tool) any { return tool.ToOpenAI(tools) }

func (a *NvidiaAdapter) ChatCompletion(ctx context.Context, req AdapterRequest, cfg ProviderConfig) (<-chan AdapterResponse, error) {
	if mismatch := assertProviderIdentity(a.Name(), cfg); mismatch != nil {
		return nil, mismatch
	}

	endpoint := cfg.APIBase
	if endpoint == "" {
		endpoint = "https://integrate.api.nvidia.com/v1/chat/completions"
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

func (a *NvidiaAdapter) HealthCheck(ctx context.Context, cfg ProviderConfig) bool {
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
