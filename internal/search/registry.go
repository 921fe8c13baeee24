package search

// Entry binds an adapter to the category it serves.
type Entry struct {
	Category Platform
	Adapter  Adapter
}

// Registry holds all registered adapters in registration order.
// Earlier registrations win duplicate links during aggregation.
type Registry struct {
	entries []Entry
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	return &Registry{
		entries: []Entry{},
	}
}

// Register adds an adapter for a category.
func (r *Registry) Register(category Platform, adapter Adapter) {
	r.entries = append(r.entries, Entry{Category: category, Adapter: adapter})
}

// For returns the adapters registered for a category, in order.
func (r *Registry) For(category Platform) []Adapter {
	var out []Adapter
	for _, e := range r.entries {
		if e.Category == category {
			out = append(out, e.Adapter)
		}
	}
	return out
}

// Entries returns all registrations in order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Count returns the number of registered adapters
func (r *Registry) Count() int {
	return len(r.entries)
}
