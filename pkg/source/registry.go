package source

import "sync"

// ID names a liquidity source, e.g. "mesh" for the relay orderbook or a
// pool adapter name.
type ID string

type Kind int

const (
	Orderbook Kind = iota + 1 // on-network order book fed by the relay
	Pool                      // external pool adapter
)

func (k Kind) String() string {
	switch k {
	case Orderbook:
		return "Orderbook"
	case Pool:
		return "Pool"
	default:
		return "Unknown"
	}
}

type Source struct {
	ID   ID
	Kind Kind
}

// Registry holds the set of enabled liquidity sources. Membership changes
// only via operator config reload; request handling never mutates it, so
// concurrent reads are cheap.
type Registry struct {
	mu       sync.RWMutex
	byID     map[ID]Source
	priority []ID // operator-configured tiebreak order
}

// NewRegistry registers sources in the given priority order. The first
// entry wins price ties during resolution.
func NewRegistry(sources []Source) *Registry {
	r := &Registry{byID: make(map[ID]Source, len(sources))}
	for _, s := range sources {
		if _, dup := r.byID[s.ID]; dup {
			continue
		}
		r.byID[s.ID] = s
		r.priority = append(r.priority, s.ID)
	}
	return r
}

// Eligible returns all registered sources minus the excluded names, in
// priority order. Unknown excluded names are ignored: excluding a source
// that does not exist is harmless.
func (r *Registry) Eligible(excluded map[string]struct{}) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ID, 0, len(r.priority))
	for _, id := range r.priority {
		if _, skip := excluded[string(id)]; skip {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Priority returns the tiebreak rank of a source (lower wins). Unregistered
// sources rank last.
func (r *Registry) Priority(id ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, p := range r.priority {
		if p == id {
			return i
		}
	}
	return len(r.priority)
}

// Get looks up a source by name.
func (r *Registry) Get(id ID) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// All returns every registered source in priority order.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.priority))
	for _, id := range r.priority {
		out = append(out, r.byID[id])
	}
	return out
}

// Reload swaps in a new source set. Called from the config path only.
func (r *Registry) Reload(sources []Source) {
	next := NewRegistry(sources)

	r.mu.Lock()
	r.byID = next.byID
	r.priority = next.priority
	r.mu.Unlock()
}
