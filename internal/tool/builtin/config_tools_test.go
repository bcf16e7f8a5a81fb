package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/gateway/internal/config"
	"github.com/mcp-gateway/gateway/internal/tool"
)

func newTestAuthority(t *testing.T) *config.Authority {
	t.Helper()
	manager := config.NewManager(t.TempDir())
	_, err := manager.Load()
	require.NoError(t, err)
	return config.NewAuthority(manager)
}

func TestRegisterAll_RegistersSixTools(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	names := make([]string, 0, 6)
	for _, d := range registry.List() {
		names = append(names, d.Name)
	}

	assert.ElementsMatch(t, []string{
		"ai_configure", "show_current_config", "list_available_models",
		"switch_provider", "get_parameter_info", "reset_config",
	}, names)
}

func TestAIConfigure_SetsTemperatureOnActiveProvider(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	result, err := registry.Execute("ai_configure", map[string]any{"parameter": "temperature", "value": "0.9"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	assert.Equal(t, "success", doc["status"])

	active, err := auth.ReadActive()
	require.NoError(t, err)
	assert.Equal(t, 0.9, active.Temperature)
}

func TestAIConfigure_OutOfRangeReturnsErrorStatusWithoutMutating(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	before, err := auth.ReadActive()
	require.NoError(t, err)

	result, err := registry.Execute("ai_configure", map[string]any{"parameter": "temperature", "value": "50"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	assert.Equal(t, "error", doc["status"])

	after, err := auth.ReadActive()
	require.NoError(t, err)
	assert.Equal(t, before.Temperature, after.Temperature)
}

func TestSwitchProvider_WithoutConfirmDoesNotMutate(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	before := auth.Snapshot()

	result, err := registry.Execute("switch_provider", map[string]any{"provider": "anthropic"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	assert.Equal(t, "confirmation_required", doc["status"])

	after := auth.Snapshot()
	assert.Equal(t, before.Provider.Active, after.Provider.Active)
}

func TestSwitchProvider_WithConfirmSwitches(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	result, err := registry.Execute("switch_provider", map[string]any{"provider": "anthropic", "confirm": true})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	assert.Equal(t, "success", doc["status"])

	active, err := auth.ReadActive()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", active.Provider)
}

func TestResetConfig_TwoPhase(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	_, err := registry.Execute("ai_configure", map[string]any{"provider": "openai", "parameter": "temperature", "value": "0.1"})
	require.NoError(t, err)

	before := auth.Snapshot()
	result, err := registry.Execute("reset_config", map[string]any{"provider": "openai"})
	require.NoError(t, err)
	doc := result.Result.(map[string]any)
	assert.Equal(t, "confirmation_required", doc["status"])

	after := auth.Snapshot()
	assert.Equal(t, before.Provider.Models["openai"].Temperature, after.Provider.Models["openai"].Temperature)

	result, err = registry.Execute("reset_config", map[string]any{"provider": "openai", "confirm": true})
	require.NoError(t, err)
	doc = result.Result.(map[string]any)
	assert.Equal(t, "success", doc["status"])

	final, err := auth.ReadProvider("openai")
	require.NoError(t, err)
	assert.Equal(t, 1.0, final.Temperature)
}

func TestShowCurrentConfig_JSONFormat(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	_, err := registry.Execute("ai_configure", map[string]any{"parameter": "temperature", "value": "0.42"})
	require.NoError(t, err)

	result, err := registry.Execute("show_current_config", map[string]any{"format": "json"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	params := doc["parameters"].(map[string]any)
	temp := params["temperature"].(map[string]any)
	assert.Equal(t, 0.42, temp["value"])
}

func TestListAvailableModels_FlatFormat(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	result, err := registry.Execute("list_available_models", map[string]any{"provider": "openai", "format": "flat"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	models := doc["models"].([]string)
	assert.NotEmpty(t, models)
}

func TestGetParameterInfo_SingleProvider(t *testing.T) {
	auth := newTestAuthority(t)
	registry := tool.NewRegistry()
	RegisterAll(registry, auth)

	result, err := registry.Execute("get_parameter_info", map[string]any{"provider": "openai", "parameter": "temperature"})
	require.NoError(t, err)

	doc := result.Result.(map[string]any)
	openai := doc["openai"].(map[string]any)
	assert.Contains(t, openai, "temperature")
}
