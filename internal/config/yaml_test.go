package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_YAMLPrecedesJSON(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	yamlDoc := `
host: "0.0.0.0"
port: 8080
provider:
  active: "anthropic"
  models:
    anthropic:
      model: "claude-3-opus-20240229"
      temperature: 0.5
      max_tokens: 2048
      system_prompt: "be terse"
runtime:
  strict_mode: true
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DefaultYAMLFilename), []byte(yamlDoc), 0o644))

	jsonDoc := `{"host":"should-not-win","provider":{"active":"openai","models":{}}}`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DefaultConfigFilename), []byte(jsonDoc), 0o644))

	doc, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", doc.Host)
	assert.Equal(t, 8080, doc.Port)
	assert.Equal(t, "anthropic", doc.Provider.Active)

	rec := doc.Provider.Models["anthropic"]
	require.NotNil(t, rec)
	assert.Equal(t, "claude-3-opus-20240229", rec.Model)
	assert.Equal(t, 0.5, rec.Temperature)
	assert.Equal(t, 2048, rec.MaxTokens)
	assert.True(t, doc.Runtime.StrictMode)
}

func TestManager_FallsBackToJSONWhenNoYAML(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	jsonDoc := `{
		"host": "10.0.0.1",
		"port": 9000,
		"provider": {
			"active": "gemini",
			"models": {
				"gemini": {"model": "gemini-1.5-pro", "temperature": 0.3, "max_tokens": 1024, "system_prompt": ""}
			}
		},
		"runtime": {"strict_mode": false}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DefaultConfigFilename), []byte(jsonDoc), 0o644))

	doc, err := mgr.Load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", doc.Host)
	assert.Equal(t, 9000, doc.Port)
	assert.Equal(t, "gemini", doc.Provider.Active)
	assert.Equal(t, "gemini-1.5-pro", doc.Provider.Models["gemini"].Model)
}

func TestManager_SavePersistsAsYAML(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)

	doc, err := mgr.Load()
	require.NoError(t, err)
	require.NoError(t, mgr.Save(doc))

	data, err := os.ReadFile(filepath.Join(tempDir, DefaultYAMLFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "active:")
}
