package providers

// Registry holds one Adapter instance per provider name for the process
// lifetime (§3 Lifecycles: "Adapter: one per provider for process
// lifetime").
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own Name().
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get retrieves the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Initialize registers the five built-in adapters (OpenAI, Anthropic,
// Gemini, OpenRouter, and the supplemented Nvidia adapter).
func (r *Registry) Initialize() {
	r.Register(NewOpenAIAdapter())
	r.Register(NewAnthropicAdapter())
	r.Register(NewGeminiAdapter())
	r.Register(NewOpenRouterAdapter())
	r.Register(NewNvidiaAdapter())
}
