// Package config implements the configuration authority (C4): the single,
// validated, persisted source of truth for provider, model, and parameter
// state that the MCP server and provider adapters read and mutate.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 7970
)

// KnownProviders is the fixed set of provider names the gateway recognizes.
var KnownProviders = []string{"openai", "anthropic", "gemini", "openrouter", "nvidia"}

// DefaultProviderURLs mirrors the upstream endpoint each adapter talks to.
var DefaultProviderURLs = map[string]string{
	"openai":     "https://api.openai.com/v1/chat/completions",
	"anthropic":  "https://api.anthropic.com/v1/messages",
	"gemini":     "https://generativelanguage.googleapis.com/v1beta/models",
	"openrouter": "https://openrouter.ai/api/v1/chat/completions",
	"nvidia":     "https://integrate.api.nvidia.com/v1/chat/completions",
}

// DefaultProviderModels seeds List-models / get_parameter_info responses
// before a user ever sets anything.
var DefaultProviderModels = map[string][]string{
	"openai":     {"gpt-4o", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
	"anthropic":  {"claude-3-5-sonnet-20241022", "claude-3-opus-20240229", "claude-3-haiku-20240307"},
	"gemini":     {"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
	"openrouter": {"anthropic/claude-3.5-sonnet", "anthropic/claude-3-opus", "openai/gpt-4-turbo", "openai/gpt-4o"},
	"nvidia":     {"nvidia/llama-3.1-nemotron-70b-instruct", "nvidia/llama-3.1-nemotron-51b-instruct"},
}

// ProviderModelConfig is one provider's record within the persisted document,
// per §3 ConfigurationState: "{model, temperature, max_tokens?, system_prompt, ...}".
type ProviderModelConfig struct {
	Model        string  `json:"model" yaml:"model"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	MaxTokens    int     `json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt string  `json:"system_prompt" yaml:"system_prompt"`
	APIKey       string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIBase      string  `json:"api_base,omitempty" yaml:"api_base,omitempty"`
}

// ProviderSection is the `provider` top-level key of the persisted document.
type ProviderSection struct {
	Active string                          `json:"active" yaml:"active"`
	Models map[string]*ProviderModelConfig `json:"models" yaml:"models"`
}

// RuntimeSection is the `runtime` top-level key of the persisted document.
type RuntimeSection struct {
	StrictMode bool `json:"strict_mode" yaml:"strict_mode"`
}

// Document is the on-disk shape described in §6 "Persisted state layout":
// a single document with top-level keys `provider` and `runtime`.
type Document struct {
	Host     string          `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int             `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey   string          `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Provider ProviderSection `json:"provider" yaml:"provider"`
	Runtime  RuntimeSection  `json:"runtime" yaml:"runtime"`
}

// Notifier is the fan-out dependency C4 broadcasts through. Defined here
// (rather than importing internal/notify) to keep config dependency-free of
// the transport layer; internal/notify.FanOut satisfies it.
type Notifier interface {
	Broadcast(method string, params any)
}

// Manager owns the persisted Document: load, validate/apply-defaults, and
// synchronous, whole-document replacement writes, generalized from a flat
// Providers slice into the provider/runtime document shape C4 requires.
type Manager struct {
	baseDir  string
	jsonPath string
	yamlPath string

	mu       sync.RWMutex
	doc      *Document
	notifier Notifier
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:  baseDir,
		jsonPath: filepath.Join(baseDir, DefaultConfigFilename),
		yamlPath: filepath.Join(baseDir, DefaultYAMLFilename),
	}
}

// SetNotifier wires the fan-out used for post-mutation broadcasts. Must be
// called before any mutating operation; Load/Get work without one.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

func (m *Manager) notify(method string, params any) {
	m.mu.RLock()
	n := m.notifier
	m.mu.RUnlock()
	if n != nil {
		n.Broadcast(method, params)
	}
}

// Path returns the file the next Save will write to. The gateway always
// persists YAML (per §6), so this is simply the configured yamlPath.
func (m *Manager) Path() string {
	return m.yamlPath
}

// Exists reports whether a persisted document is present on disk.
func (m *Manager) Exists() bool {
	if _, err := os.Stat(m.yamlPath); err == nil {
		return true
	}
	_, err := os.Stat(m.jsonPath)
	return err == nil
}

// Load reads the document from disk (YAML takes precedence over JSON),
// materializing defaults on first read per §3's Configuration lifecycle.
func (m *Manager) Load() (*Document, error) {
	var doc Document

	switch {
	case fileExists(m.yamlPath):
		data, err := os.ReadFile(m.yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read yaml config: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal yaml config: %w", err)
		}
	case fileExists(m.jsonPath):
		data, err := os.ReadFile(m.jsonPath)
		if err != nil {
			return nil, fmt.Errorf("read json config: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal json config: %w", err)
		}
	default:
		doc = defaultDocument()
	}

	applyDefaults(&doc)

	m.mu.Lock()
	m.doc = &doc
	m.mu.Unlock()

	return &doc, nil
}

// Get returns the currently loaded document, loading it first if needed.
// If that load fails, Get returns a default document with defaults applied
// and does not report the error; the fallback is not cached, so the next
// Get tries the load again.
func (m *Manager) Get() *Document {
	m.mu.RLock()
	doc := m.doc
	m.mu.RUnlock()
	if doc != nil {
		return doc
	}

	doc, err := m.Load()
	if err != nil {
		fallback := defaultDocument()
		applyDefaults(&fallback)
		return &fallback
	}
	return doc
}

// Save persists the whole document (never a partial update, per §6) and
// updates the in-memory copy. Callers that want a notification fired must
// call notify explicitly from the authority layer after Save succeeds.
func (m *Manager) Save(doc *Document) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal yaml config: %w", err)
	}

	if err := os.WriteFile(m.yamlPath, data, 0o644); err != nil {
		return fmt.Errorf("write yaml config: %w", err)
	}

	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func defaultDocument() Document {
	return Document{
		Host: DefaultHost,
		Port: DefaultPort,
		Provider: ProviderSection{
			Active: "openai",
			Models: map[string]*ProviderModelConfig{},
		},
	}
}

// applyDefaults materializes one record per known provider, fills an empty
// model with the provider's first default model, and sets the temperature
// and max_tokens defaults only on records it creates; zero values in an
// existing record are kept.
func applyDefaults(doc *Document) {
	if doc.Host == "" {
		doc.Host = DefaultHost
	}
	if doc.Port == 0 {
		doc.Port = DefaultPort
	}
	if doc.Provider.Models == nil {
		doc.Provider.Models = map[string]*ProviderModelConfig{}
	}
	if doc.Provider.Active == "" {
		doc.Provider.Active = "openai"
	}

	for _, name := range KnownProviders {
		rec, existed := doc.Provider.Models[name]
		if !existed || rec == nil {
			rec = &ProviderModelConfig{}
			doc.Provider.Models[name] = rec
		}

		schema := EffectiveSchema(name, rec.Model)

		if rec.Model == "" {
			if models := DefaultProviderModels[name]; len(models) > 0 {
				rec.Model = models[0]
			}
		}

		// Temperature/MaxTokens defaults are materialized only for a
		// brand-new record. A persisted zero is a deliberate value (e.g.
		// temperature=0 for deterministic output) and must round-trip,
		// not be mistaken for "unset" on every subsequent load.
		if !existed {
			rec.Temperature = schema.Temperature.Default
			rec.MaxTokens = int(schema.MaxTokens.Default)
		}
	}
}
