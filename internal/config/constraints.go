package config

import "strings"

// NumericConstraint is a ParameterConstraint specialization for the
// temperature/max_tokens numeric parameters (§3 ParameterConstraint).
type NumericConstraint struct {
	Min     float64
	Max     float64
	Default float64
}

// InRange reports whether v satisfies the constraint's [Min, Max] bound.
func (c NumericConstraint) InRange(v float64) bool {
	return v >= c.Min && v <= c.Max
}

// ModelSchema is the effective, resolved set of ParameterConstraints for one
// (provider, model) pair.
type ModelSchema struct {
	Temperature NumericConstraint
	MaxTokens   NumericConstraint
}

// conservativeSchema is the fallback named in §3: "unknown models fall back
// to a conservative schema (temperature ∈ [0,1] default 0.7; max_tokens ∈
// [1,2048] default 2048)".
var conservativeSchema = ModelSchema{
	Temperature: NumericConstraint{Min: 0, Max: 1, Default: 0.7},
	MaxTokens:   NumericConstraint{Min: 1, Max: 2048, Default: 2048},
}

// modelSchemas keyed by provider-class; model name substrings refine the
// bound within a provider (e.g. Anthropic's opus/haiku families share the
// same temperature range but different max_tokens ceilings).
var modelSchemas = map[string]ModelSchema{
	"openai":     {Temperature: NumericConstraint{0, 2, 1.0}, MaxTokens: NumericConstraint{1, 16384, 4096}},
	"anthropic":  {Temperature: NumericConstraint{0, 1, 1.0}, MaxTokens: NumericConstraint{1, 8192, 4096}},
	"gemini":     {Temperature: NumericConstraint{0, 2, 1.0}, MaxTokens: NumericConstraint{1, 8192, 2048}},
	"openrouter": {Temperature: NumericConstraint{0, 2, 1.0}, MaxTokens: NumericConstraint{1, 8192, 4096}},
	"nvidia":     {Temperature: NumericConstraint{0, 1, 0.5}, MaxTokens: NumericConstraint{1, 4096, 1024}},
}

// modelOverrides refines a schema for specific models within a provider,
// matched by substring against the model name (e.g. "opus" tightens the
// Anthropic ceiling further than the provider-wide default).
var modelOverrides = map[string]map[string]ModelSchema{
	"anthropic": {
		"opus":   {Temperature: NumericConstraint{0, 1, 1.0}, MaxTokens: NumericConstraint{1, 4096, 4096}},
		"haiku":  {Temperature: NumericConstraint{0, 1, 1.0}, MaxTokens: NumericConstraint{1, 8192, 4096}},
		"sonnet": {Temperature: NumericConstraint{0, 1, 1.0}, MaxTokens: NumericConstraint{1, 8192, 4096}},
	},
}

// EffectiveSchema derives the ParameterConstraint set for a (provider, model)
// pair, per §3's ParameterConstraint lookup rule: provider-class schema,
// refined by model name, falling back to the conservative schema for
// anything unrecognized.
func EffectiveSchema(provider, model string) ModelSchema {
	base, known := modelSchemas[provider]
	if !known {
		return conservativeSchema
	}

	lower := strings.ToLower(model)
	for substr, override := range modelOverrides[provider] {
		if strings.Contains(lower, substr) {
			return override
		}
	}

	return base
}
