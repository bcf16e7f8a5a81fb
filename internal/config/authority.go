package config

import (
	"fmt"
	"strconv"
)

// ErrorKind classifies C4 mutation failures per §4.4 / §7's config-error row.
type ErrorKind string

const (
	ErrUnknownProvider  ErrorKind = "unknown-provider"
	ErrUnknownParameter ErrorKind = "unknown-parameter"
	ErrTypeMismatch     ErrorKind = "type-mismatch"
	ErrOutOfRange       ErrorKind = "out-of-range"
	ErrNotInEnum        ErrorKind = "not-in-enum"
	ErrPersistence      ErrorKind = "persistence-error"
)

// AuthorityError is the typed error C4 raises to C7 on a failed mutation.
type AuthorityError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthorityError) Error() string { return e.Message }

func newErr(kind ErrorKind, format string, args ...any) *AuthorityError {
	return &AuthorityError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ActiveConfig is the flattened read-active view returned by C4.
type ActiveConfig struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

// Authority implements the C4 operations (§4.4): Read-active, Set-parameter,
// Switch-active, Reset, List-available-providers, List-models,
// Get-constraints. It is the only thing allowed to mutate a Manager's
// document; C7's tool handlers talk to Authority, never to Manager directly.
type Authority struct {
	manager *Manager
}

func NewAuthority(manager *Manager) *Authority {
	return &Authority{manager: manager}
}

// ReadActive returns the active provider's record flattened, per §4.4.
func (a *Authority) ReadActive() (ActiveConfig, error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[doc.Provider.Active]
	if !ok {
		return ActiveConfig{}, newErr(ErrUnknownProvider, "unknown active provider %q", doc.Provider.Active)
	}

	return ActiveConfig{
		Provider:     doc.Provider.Active,
		Model:        rec.Model,
		Temperature:  rec.Temperature,
		MaxTokens:    rec.MaxTokens,
		SystemPrompt: rec.SystemPrompt,
	}, nil
}

// ReadProvider returns a specific (possibly non-active) provider's record.
func (a *Authority) ReadProvider(provider string) (ActiveConfig, error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[provider]
	if !ok {
		return ActiveConfig{}, newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}

	return ActiveConfig{
		Provider:     provider,
		Model:        rec.Model,
		Temperature:  rec.Temperature,
		MaxTokens:    rec.MaxTokens,
		SystemPrompt: rec.SystemPrompt,
	}, nil
}

// SetParameter resolves the constraint for (provider, current model), coerces
// value to the declared type, enforces range/enum, persists and notifies.
// See §4.4: "each mutation persists-then-notifies; notifications are not
// emitted on error."
func (a *Authority) SetParameter(provider, name, value string) (oldValue, newValue any, err error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[provider]
	if !ok {
		return nil, nil, newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}

	schema := EffectiveSchema(provider, rec.Model)

	switch name {
	case "temperature":
		oldValue = rec.Temperature
		v, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return oldValue, nil, newErr(ErrTypeMismatch, "temperature must be a number, got %q", value)
		}
		if !schema.Temperature.InRange(v) {
			return oldValue, nil, newErr(ErrOutOfRange, "temperature %v out of range [%v, %v] for %s", v, schema.Temperature.Min, schema.Temperature.Max, provider)
		}
		rec.Temperature = v
		newValue = v

	case "max_tokens":
		oldValue = rec.MaxTokens
		v, perr := strconv.Atoi(value)
		if perr != nil {
			return oldValue, nil, newErr(ErrTypeMismatch, "max_tokens must be an integer, got %q", value)
		}
		if !schema.MaxTokens.InRange(float64(v)) {
			return oldValue, nil, newErr(ErrOutOfRange, "max_tokens %d out of range [%v, %v] for %s", v, schema.MaxTokens.Min, schema.MaxTokens.Max, provider)
		}
		rec.MaxTokens = v
		newValue = v

	case "system_prompt":
		oldValue = rec.SystemPrompt
		rec.SystemPrompt = value
		newValue = value

	case "model":
		oldValue = rec.Model
		if !modelKnown(provider, value) {
			return oldValue, nil, newErr(ErrNotInEnum, "model %q is not available for provider %s", value, provider)
		}
		rec.Model = value
		newValue = value

	default:
		return nil, nil, newErr(ErrUnknownParameter, "unknown parameter %q", name)
	}

	if err := a.manager.Save(doc); err != nil {
		return oldValue, nil, newErr(ErrPersistence, "persist configuration: %v", err)
	}

	a.manager.notify("configuration/changed", map[string]any{
		"provider":  provider,
		"parameter": name,
		"value":     newValue,
		"old_value": oldValue,
	})

	return oldValue, newValue, nil
}

// DefaultFor resolves the constraint's default for (provider, parameter),
// used by built-in tool C6 when value=="default".
func (a *Authority) DefaultFor(provider, name string) (string, error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[provider]
	if !ok {
		return "", newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}
	schema := EffectiveSchema(provider, rec.Model)

	switch name {
	case "temperature":
		return strconv.FormatFloat(schema.Temperature.Default, 'f', -1, 64), nil
	case "max_tokens":
		return strconv.Itoa(int(schema.MaxTokens.Default)), nil
	case "system_prompt":
		return "", nil
	case "model":
		if models := DefaultProviderModels[provider]; len(models) > 0 {
			return models[0], nil
		}
		return "", nil
	default:
		return "", newErr(ErrUnknownParameter, "unknown parameter %q", name)
	}
}

// SwitchActive makes provider the active provider, persists and notifies.
func (a *Authority) SwitchActive(provider string) error {
	doc := a.manager.Get()
	if _, ok := doc.Provider.Models[provider]; !ok {
		return newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}

	previous := doc.Provider.Active
	doc.Provider.Active = provider

	if err := a.manager.Save(doc); err != nil {
		return newErr(ErrPersistence, "persist configuration: %v", err)
	}

	a.manager.notify("configuration/provider_switched", map[string]any{
		"previous_provider": previous,
		"active_provider":   provider,
	})

	return nil
}

// Reset writes the default for each named (or all) parameter whose current
// value differs from the default, persists once, and notifies once with the
// full set of applied defaults. provider=="" means reset every provider.
func (a *Authority) Reset(provider string, names []string) (map[string]map[string]any, error) {
	doc := a.manager.Get()

	targets := []string{provider}
	if provider == "" || provider == "all" {
		targets = KnownProviders
	}

	if len(names) == 0 {
		names = []string{"temperature", "max_tokens", "system_prompt"}
	}

	applied := map[string]map[string]any{}

	for _, p := range targets {
		rec, ok := doc.Provider.Models[p]
		if !ok {
			return nil, newErr(ErrUnknownProvider, "unknown provider %q", p)
		}
		schema := EffectiveSchema(p, rec.Model)

		changed := map[string]any{}
		for _, name := range names {
			switch name {
			case "temperature":
				if rec.Temperature != schema.Temperature.Default {
					rec.Temperature = schema.Temperature.Default
					changed["temperature"] = schema.Temperature.Default
				}
			case "max_tokens":
				if rec.MaxTokens != int(schema.MaxTokens.Default) {
					rec.MaxTokens = int(schema.MaxTokens.Default)
					changed["max_tokens"] = int(schema.MaxTokens.Default)
				}
			case "system_prompt":
				if rec.SystemPrompt != "" {
					rec.SystemPrompt = ""
					changed["system_prompt"] = ""
				}
			}
		}

		if len(changed) > 0 {
			applied[p] = changed
		}
	}

	if err := a.manager.Save(doc); err != nil {
		return nil, newErr(ErrPersistence, "persist configuration: %v", err)
	}

	a.manager.notify("configuration/reset", map[string]any{
		"provider": provider,
		"applied":  applied,
	})

	return applied, nil
}

// ListProviders returns the known provider names, per §4.4's read-only views.
func (a *Authority) ListProviders() []string {
	return append([]string(nil), KnownProviders...)
}

// ListModels returns the models known for provider: its default models,
// plus the document's current model when that is not among them.
func (a *Authority) ListModels(provider string) ([]string, error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[provider]
	if !ok {
		return nil, newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}

	models := append([]string(nil), DefaultProviderModels[provider]...)
	if rec.Model != "" && !modelKnown(provider, rec.Model) {
		models = append(models, rec.Model)
	}
	return models, nil
}

// GetConstraints returns the effective ModelSchema for (provider, its
// current model), for get_parameter_info introspection.
func (a *Authority) GetConstraints(provider string) (ModelSchema, error) {
	doc := a.manager.Get()
	rec, ok := doc.Provider.Models[provider]
	if !ok {
		return ModelSchema{}, newErr(ErrUnknownProvider, "unknown provider %q", provider)
	}
	return EffectiveSchema(provider, rec.Model), nil
}

// Snapshot returns a copy of the whole document, used by the two-phase
// confirm tools (§4.6) to render "what would change" without mutating.
func (a *Authority) Snapshot() Document {
	doc := a.manager.Get()
	cp := *doc
	cp.Provider.Models = make(map[string]*ProviderModelConfig, len(doc.Provider.Models))
	for k, v := range doc.Provider.Models {
		rec := *v
		cp.Provider.Models[k] = &rec
	}
	return cp
}

func modelKnown(provider, model string) bool {
	for _, m := range DefaultProviderModels[provider] {
		if m == model {
			return true
		}
	}
	return false
}
