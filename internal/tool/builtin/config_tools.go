// Package builtin implements the six built-in configuration tools (C6): tool
// handlers that mutate or query the configuration authority (C4) through the
// tool registry (C5).
package builtin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mcp-gateway/gateway/internal/config"
	"github.com/mcp-gateway/gateway/internal/tool"
)

func floatPtr(v float64) *float64 { return &v }

// RegisterAll registers the six configuration tools against registry,
// backed by auth.
func RegisterAll(registry *tool.Registry, auth *config.Authority) {
	registry.Register(newAIConfigure(auth))
	registry.Register(newShowCurrentConfig(auth))
	registry.Register(newListAvailableModels(auth))
	registry.Register(newSwitchProvider(auth))
	registry.Register(newGetParameterInfo(auth))
	registry.Register(newResetConfig(auth))
}

// --- ai_configure ---

type aiConfigure struct{ auth *config.Authority }

func newAIConfigure(auth *config.Authority) tool.Handler { return aiConfigure{auth: auth} }

func (h aiConfigure) Definition() tool.Tool {
	return tool.Tool{
		Name:        "ai_configure",
		Description: "Set a configuration parameter for a provider, or the active provider if none given.",
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"provider":  {Type: "string", Description: "provider to configure; defaults to the active provider"},
				"parameter": {Type: "string", Description: "parameter name", Enum: []string{"model", "temperature", "max_tokens", "system_prompt"}},
				"value":     {Type: "string", Description: `new value, or "default" to reset this one parameter`},
			},
			Required: []string{"parameter", "value"},
		},
	}
}

func (h aiConfigure) Execute(args map[string]any) (any, error) {
	provider, _ := args["provider"].(string)
	if provider == "" {
		active, err := h.auth.ReadActive()
		if err != nil {
			return configErrorResult(err), nil
		}
		provider = active.Provider
	}

	parameter := args["parameter"].(string)
	value := args["value"].(string)

	if value == "default" {
		def, err := h.auth.DefaultFor(provider, parameter)
		if err != nil {
			return configErrorResult(err), nil
		}
		value = def
	}

	oldValue, newValue, err := h.auth.SetParameter(provider, parameter, value)
	if err != nil {
		return configErrorResult(err), nil
	}

	current, err := h.auth.ReadProvider(provider)
	if err != nil {
		return configErrorResult(err), nil
	}

	return map[string]any{
		"status":         "success",
		"old_value":      oldValue,
		"new_value":      newValue,
		"current_config": current,
	}, nil
}

// configErrorResult renders a C4 AuthorityError as the isError:true tool
// result shape described in §7's config-error row, rather than propagating
// it as a JSON-RPC error.
func configErrorResult(err error) map[string]any {
	var authErr *config.AuthorityError
	kind := "config-error"
	if errors.As(err, &authErr) {
		kind = string(authErr.Kind)
	}
	return map[string]any{
		"status": "error",
		"kind":   kind,
		"error":  err.Error(),
	}
}

// --- show_current_config ---

type showCurrentConfig struct{ auth *config.Authority }

func newShowCurrentConfig(auth *config.Authority) tool.Handler { return showCurrentConfig{auth: auth} }

func (h showCurrentConfig) Definition() tool.Tool {
	return tool.Tool{
		Name:        "show_current_config",
		Description: "Show the active provider's current configuration.",
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"verbose": {Type: "boolean", Description: "include provider-specific extras"},
				"format":  {Type: "string", Description: "rendering", Enum: []string{"detailed", "compact", "json"}, Default: "detailed"},
			},
		},
	}
}

func (h showCurrentConfig) Execute(args map[string]any) (any, error) {
	active, err := h.auth.ReadActive()
	if err != nil {
		return configErrorResult(err), nil
	}

	format, _ := args["format"].(string)
	if format == "" {
		format = "detailed"
	}

	switch format {
	case "compact":
		return map[string]any{"provider": active.Provider, "model": active.Model}, nil
	case "json":
		return map[string]any{
			"provider": active.Provider,
			"parameters": map[string]any{
				"model":         map[string]any{"value": active.Model},
				"temperature":   map[string]any{"value": active.Temperature},
				"max_tokens":    map[string]any{"value": active.MaxTokens},
				"system_prompt": map[string]any{"value": active.SystemPrompt},
			},
		}, nil
	default:
		result := map[string]any{
			"provider":      active.Provider,
			"model":         active.Model,
			"temperature":   active.Temperature,
			"max_tokens":    active.MaxTokens,
			"system_prompt": active.SystemPrompt,
		}
		if verbose, _ := args["verbose"].(bool); verbose {
			constraints, _ := h.auth.GetConstraints(active.Provider)
			result["constraints"] = constraints
		}
		return result, nil
	}
}

// --- list_available_models ---

type listAvailableModels struct{ auth *config.Authority }

func newListAvailableModels(auth *config.Authority) tool.Handler {
	return listAvailableModels{auth: auth}
}

func (h listAvailableModels) Definition() tool.Tool {
	return tool.Tool{
		Name:        "list_available_models",
		Description: "List available models, optionally filtered to one provider.",
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"provider": {Type: "string", Description: "restrict to this provider"},
				"format":   {Type: "string", Enum: []string{"grouped", "flat", "json"}, Default: "grouped"},
			},
		},
	}
}

func (h listAvailableModels) Execute(args map[string]any) (any, error) {
	format, _ := args["format"].(string)
	if format == "" {
		format = "grouped"
	}

	providers := h.auth.ListProviders()
	if p, _ := args["provider"].(string); p != "" {
		providers = []string{p}
	}
	sort.Strings(providers)

	grouped := map[string][]string{}
	for _, p := range providers {
		models, err := h.auth.ListModels(p)
		if err != nil {
			return configErrorResult(err), nil
		}
		grouped[p] = models
	}

	switch format {
	case "flat":
		var flat []string
		for _, p := range providers {
			flat = append(flat, grouped[p]...)
		}
		return map[string]any{"models": flat}, nil
	case "json":
		return grouped, nil
	default:
		return map[string]any{"providers": grouped}, nil
	}
}

// --- switch_provider ---

type switchProvider struct{ auth *config.Authority }

func newSwitchProvider(auth *config.Authority) tool.Handler { return switchProvider{auth: auth} }

func (h switchProvider) Definition() tool.Tool {
	return tool.Tool{
		Name:        "switch_provider",
		Description: "Switch the active provider. Requires confirm=true to take effect.",
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"provider": {Type: "string", Description: "provider to activate"},
				"confirm":  {Type: "boolean", Description: "must be true to actually switch", Default: false},
				"model":    {Type: "string", Description: "optionally also set the model on switch"},
			},
			Required: []string{"provider"},
		},
	}
}

func (h switchProvider) Execute(args map[string]any) (any, error) {
	provider := args["provider"].(string)
	confirm, _ := args["confirm"].(bool)

	current, err := h.auth.ReadActive()
	if err != nil {
		return configErrorResult(err), nil
	}
	target, err := h.auth.ReadProvider(provider)
	if err != nil {
		return configErrorResult(err), nil
	}

	if !confirm {
		return map[string]any{
			"status":  "confirmation_required",
			"message": fmt.Sprintf("would switch active provider from %s to %s", current.Provider, provider),
			"current": current,
			"target":  target,
		}, nil
	}

	if err := h.auth.SwitchActive(provider); err != nil {
		return configErrorResult(err), nil
	}

	if model, _ := args["model"].(string); model != "" {
		if _, _, err := h.auth.SetParameter(provider, "model", model); err != nil {
			return configErrorResult(err), nil
		}
	}

	newActive, err := h.auth.ReadActive()
	if err != nil {
		return configErrorResult(err), nil
	}

	return map[string]any{
		"status":          "success",
		"previous":        current.Provider,
		"active_provider":  newActive.Provider,
		"current_config":  newActive,
	}, nil
}

// --- get_parameter_info ---

type getParameterInfo struct{ auth *config.Authority }

func newGetParameterInfo(auth *config.Authority) tool.Handler { return getParameterInfo{auth: auth} }

func (h getParameterInfo) Definition() tool.Tool {
	return tool.Tool{
		Name:        "get_parameter_info",
		Description: "Introspect parameter constraints, optionally compared across providers.",
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"parameter": {Type: "string", Description: "limit to this parameter"},
				"provider":  {Type: "string", Description: "limit to this provider"},
				"compare":   {Type: "boolean", Description: "include every provider's current value", Default: false},
			},
		},
	}
}

func (h getParameterInfo) Execute(args map[string]any) (any, error) {
	compare, _ := args["compare"].(bool)
	providers := h.auth.ListProviders()
	if p, _ := args["provider"].(string); p != "" {
		providers = []string{p}
	}
	sort.Strings(providers)

	parameter, _ := args["parameter"].(string)

	out := map[string]any{}
	for _, p := range providers {
		constraints, err := h.auth.GetConstraints(p)
		if err != nil {
			return configErrorResult(err), nil
		}
		current, err := h.auth.ReadProvider(p)
		if err != nil {
			return configErrorResult(err), nil
		}

		entry := map[string]any{}
		if parameter == "" || parameter == "temperature" {
			entry["temperature"] = map[string]any{"constraint": constraints.Temperature, "current": current.Temperature}
		}
		if parameter == "" || parameter == "max_tokens" {
			entry["max_tokens"] = map[string]any{"constraint": constraints.MaxTokens, "current": current.MaxTokens}
		}
		out[p] = entry

		if !compare {
			return map[string]any{p: entry}, nil
		}
	}

	return out, nil
}

// --- reset_config ---

type resetConfig struct{ auth *config.Authority }

func newResetConfig(auth *config.Authority) tool.Handler { return resetConfig{auth: auth} }

func (h resetConfig) Definition() tool.Tool {
	return tool.Tool{
		Name:        "reset_config",
		Description: `Reset parameters to defaults. provider="all" resets every provider. Requires confirm=true to take effect.`,
		Category:    "configuration",
		Version:     "1",
		InputSchema: tool.InputSchema{
			Type: "object",
			Properties: map[string]tool.Parameter{
				"provider":   {Type: "string", Description: "provider to reset, or \"all\"", Default: "all"},
				"confirm":    {Type: "boolean", Default: false},
				"parameters": {Type: "array", Items: &tool.Parameter{Type: "string"}, Description: "limit reset to these parameter names"},
			},
		},
	}
}

func (h resetConfig) Execute(args map[string]any) (any, error) {
	provider, _ := args["provider"].(string)
	confirm, _ := args["confirm"].(bool)

	var names []string
	if raw, ok := args["parameters"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				names = append(names, s)
			}
		}
	}

	if !confirm {
		return map[string]any{
			"status":  "confirmation_required",
			"message": fmt.Sprintf("would reset provider=%q parameters=%v to defaults", provider, names),
		}, nil
	}

	applied, err := h.auth.Reset(provider, names)
	if err != nil {
		return configErrorResult(err), nil
	}

	return map[string]any{"status": "success", "applied": applied}, nil
}
