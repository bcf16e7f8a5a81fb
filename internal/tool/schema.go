// Package tool implements the canonical tool schema and translator (C1) and
// the tool registry (C5): vendor-neutral tool descriptions, pure-function
// conversion to each provider's wire format, and validated dispatch to
// handlers.
package tool

// Parameter describes one property within a Tool's InputSchema. It mirrors
// the JSON-Schema draft keywords listed for parameters: type, description,
// required, enum, minimum/maximum, pattern, default, nested items/properties.
type Parameter struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"-"`
	Enum        []string             `json:"enum,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Maximum     *float64             `json:"maximum,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Items       *Parameter           `json:"items,omitempty"`
	Properties  map[string]Parameter `json:"properties,omitempty"`
}

// InputSchema is the JSON-Schema fragment describing a Tool's parameters.
// Required is carried at the schema level (the draft convention) rather than
// per-Parameter, even though Parameter also carries a Required flag for
// convenience when building schemas programmatically.
type InputSchema struct {
	Type       string               `json:"type"`
	Properties map[string]Parameter `json:"properties"`
	Required   []string             `json:"required,omitempty"`
}

// Tool is the canonical, vendor-neutral tool description (§3 DATA MODEL).
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
	Category    string      `json:"category,omitempty"`
	Version     string      `json:"version,omitempty"`
}

// openAIFunctionShape is the function body of an OpenAI/OpenRouter tool entry.
type openAIFunctionShape struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  InputSchema `json:"parameters"`
}

// openAIToolShape is one entry in the OpenAI/OpenRouter `tools` array.
type openAIToolShape struct {
	Type     string              `json:"type"`
	Function openAIFunctionShape `json:"function"`
}

// ToOpenAI converts canonical tools to the shape OpenAI and OpenRouter's
// chat-completions API expects: a list of {type:"function", function:{...}}.
func ToOpenAI(tools []Tool) []any {
	out := make([]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, openAIToolShape{
			Type: "function",
			Function: openAIFunctionShape{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// anthropicToolShape is one entry in Anthropic's `tools` array.
type anthropicToolShape struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ToAnthropic converts canonical tools to Anthropic's tool shape.
func ToAnthropic(tools []Tool) []any {
	out := make([]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropicToolShape{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

// geminiFunctionDeclaration is one entry in Gemini's functionDeclarations list.
type geminiFunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  InputSchema `json:"parameters"`
}

// geminiToolShape wraps the declarations the way Gemini's request body does.
type geminiToolShape struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

// ToGemini converts canonical tools to Gemini's single-object tool shape.
func ToGemini(tools []Tool) geminiToolShape {
	decls := make([]geminiFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, geminiFunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return geminiToolShape{FunctionDeclarations: decls}
}

// FromOpenAI reverses ToOpenAI, used by the round-trip property in §8. It
// recovers name, description, the schema's type and required list, and each
// property's type and description; other property keywords (enum, minimum,
// maximum, pattern, default, items, nested properties) are not recovered.
// Malformed entries are skipped.
func FromOpenAI(entries []any) []Tool {
	var out []Tool
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		fn, ok := m["function"].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Tool{
			Name:        stringField(fn, "name"),
			Description: stringField(fn, "description"),
			InputSchema: schemaFromAny(fn["parameters"]),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func schemaFromAny(v any) InputSchema {
	m, ok := v.(map[string]any)
	if !ok {
		return InputSchema{Type: "object"}
	}
	schema := InputSchema{Type: stringField(m, "type")}
	if schema.Type == "" {
		schema.Type = "object"
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]Parameter, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				schema.Properties[name] = Parameter{
					Type:        stringField(pm, "type"),
					Description: stringField(pm, "description"),
				}
			}
		}
	}
	return schema
}
