package providers

import "fmt"

// ToolCallFragment is one raw, possibly-partial tool-call chunk as emitted
// by an adapter, before C2 reassembly (§4.2).
type ToolCallFragment struct {
	ID             string
	Index          *int
	Name           string
	ArgumentsDelta string
	// Terminal marks this fragment as completing its call. Anthropic sets it
	// explicitly; Gemini fragments are always terminal; OpenAI/OpenRouter
	// never set it per-fragment — their terminal signal is stream-level
	// (see FinalizeRemaining).
	Terminal bool
}

// CompletedToolCall is the fully assembled call C2 emits (§3).
type CompletedToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type inProgressCall struct {
	id        string
	name      string
	arguments string
}

// Merger re-assembles one turn's tool-call fragments into CompletedToolCall
// values, per §4.2. A Merger is scoped to a single turn's stream; construct
// a fresh one per chat_completion call.
type Merger struct {
	scratch map[string]*inProgressCall
	order   []string
	emitted map[string]bool

	synthSeq     int
	openSynthKey string
	indexKeys    map[int]string
}

func NewMerger() *Merger {
	return &Merger{
		scratch:   make(map[string]*inProgressCall),
		emitted:   make(map[string]bool),
		indexKeys: make(map[int]string),
	}
}

// key derives the scratch-map key for a fragment per §4.2's precedence: id,
// else index (an index first seen together with an id keeps using that id's
// key), else the currently open id-less/index-less entry or the single
// in-progress entry (continuation), else a freshly synthesized key. The synthesized key is
// minted fresh each time the previous one has already finalized, so a
// sequence of distinct self-complete fragments with neither an id nor an
// index (Gemini's functionCall parts) each get their own key instead of
// colliding on a single reused one.
func (m *Merger) key(f ToolCallFragment) string {
	if f.ID != "" {
		if f.Index != nil {
			m.indexKeys[*f.Index] = f.ID
		}
		return f.ID
	}
	if f.Index != nil {
		if k, ok := m.indexKeys[*f.Index]; ok {
			return k
		}
		return fmt.Sprintf("index:%d", *f.Index)
	}
	if m.openSynthKey != "" {
		return m.openSynthKey
	}
	if len(m.scratch) == 1 {
		for k := range m.scratch {
			return k
		}
	}
	key := fmt.Sprintf("tool_call_%d", m.synthSeq)
	m.synthSeq++
	m.openSynthKey = key
	return key
}

// Ingest folds one fragment into the scratch map and, if the fragment is
// terminal for its call (or the provider marks every fragment terminal),
// emits the completed call. Returns the calls completed by this fragment,
// usually zero or one.
func (m *Merger) Ingest(f ToolCallFragment) []CompletedToolCall {
	key := m.key(f)

	entry, exists := m.scratch[key]
	if !exists {
		entry = &inProgressCall{id: f.ID}
		m.scratch[key] = entry
		m.order = append(m.order, key)
	}

	if f.Name != "" {
		entry.name = f.Name
	}
	entry.arguments += f.ArgumentsDelta
	if f.ID != "" {
		entry.id = f.ID
	}

	if !f.Terminal {
		return nil
	}

	return m.finalize(key)
}

func (m *Merger) finalize(key string) []CompletedToolCall {
	if key == m.openSynthKey {
		m.openSynthKey = ""
	}

	entry, ok := m.scratch[key]
	if !ok || m.emitted[key] {
		return nil
	}

	name := entry.name
	if name == "" {
		name = "unknown_function"
	}

	call := CompletedToolCall{ID: entry.id, Name: name, Arguments: entry.arguments}
	m.emitted[key] = true
	delete(m.scratch, key)

	return []CompletedToolCall{call}
}

// FinalizeRemaining is the terminal pass run when the provider signals
// stream-level completion (OpenAI/OpenRouter's finish_reason, or plain
// stream end). Every still-open entry is finalized; this pass is itself
// terminal — a fragment ingested afterward under an already-emitted key is
// never emitted, so a finalized call is not reopened.
func (m *Merger) FinalizeRemaining() []CompletedToolCall {
	var out []CompletedToolCall
	for _, key := range m.order {
		out = append(out, m.finalize(key)...)
	}
	return out
}
