package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTool() Tool {
	return Tool{
		Name:        "ai_configure",
		Description: "mutate configuration",
		Category:    "config",
		Version:     "1",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Parameter{
				"parameter": {Type: "string", Description: "name of the parameter"},
				"value":     {Type: "string", Description: "new value"},
			},
			Required: []string{"parameter", "value"},
		},
	}
}

func TestToOpenAI_Shape(t *testing.T) {
	out := ToOpenAI([]Tool{sampleTool()})
	require.Len(t, out, 1)

	shape, ok := out[0].(openAIToolShape)
	require.True(t, ok)
	assert.Equal(t, "function", shape.Type)
	assert.Equal(t, "ai_configure", shape.Function.Name)
	assert.Equal(t, "object", shape.Function.Parameters.Type)
}

func TestToAnthropic_Shape(t *testing.T) {
	out := ToAnthropic([]Tool{sampleTool()})
	require.Len(t, out, 1)

	shape, ok := out[0].(anthropicToolShape)
	require.True(t, ok)
	assert.Equal(t, "ai_configure", shape.Name)
	assert.Equal(t, "object", shape.InputSchema.Type)
}

func TestToGemini_Shape(t *testing.T) {
	out := ToGemini([]Tool{sampleTool()})
	require.Len(t, out.FunctionDeclarations, 1)
	assert.Equal(t, "ai_configure", out.FunctionDeclarations[0].Name)
}

func TestRoundTrip_OpenAI_PreservesNameDescriptionSchema(t *testing.T) {
	original := sampleTool()
	converted := ToOpenAI([]Tool{original})
	back := FromOpenAI(toAnySlice(converted))

	require.Len(t, back, 1)
	assert.Equal(t, original.Name, back[0].Name)
	assert.Equal(t, original.Description, back[0].Description)
	assert.Equal(t, original.InputSchema.Type, back[0].InputSchema.Type)
	assert.ElementsMatch(t, original.InputSchema.Required, back[0].InputSchema.Required)
}

// toAnySlice simulates the JSON round trip FromOpenAI is meant to reverse:
// marshal-through-map, since ToOpenAI returns typed structs directly.
func toAnySlice(shapes []any) []any {
	out := make([]any, 0, len(shapes))
	for _, s := range shapes {
		shape := s.(openAIToolShape)
		props := map[string]any{}
		for name, p := range shape.Function.Parameters.Properties {
			props[name] = map[string]any{"type": p.Type, "description": p.Description}
		}
		required := make([]any, 0, len(shape.Function.Parameters.Required))
		for _, r := range shape.Function.Parameters.Required {
			required = append(required, r)
		}
		out = append(out, map[string]any{
			"function": map[string]any{
				"name":        shape.Function.Name,
				"description": shape.Function.Description,
				"parameters": map[string]any{
					"type":       shape.Function.Parameters.Type,
					"properties": props,
					"required":   required,
				},
			},
		})
	}
	return out
}
