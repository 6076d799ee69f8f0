package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the closed set of configured provider clients keyed by
// their stable ids ("openai", "anthropic", "qwen").
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]Client
	defaultID string
}

// NewRegistry constructs an empty registry with the given default provider id.
func NewRegistry(defaultID string) *Registry {
	return &Registry{
		clients:   make(map[string]Client),
		defaultID: strings.TrimSpace(defaultID),
	}
}

// Register adds a provider client under the given id.
func (r *Registry) Register(id string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[strings.TrimSpace(id)] = client
}

// Get returns the client for the given id, falling back to the default
// provider when id is empty. Unknown ids fail with ErrUnknownProvider.
func (r *Registry) Get(id string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resolved := strings.TrimSpace(id)
	if resolved == "" {
		resolved = r.defaultID
	}
	client, ok := r.clients[resolved]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, resolved, strings.Join(r.idsLocked(), ", "))
	}
	return client, nil
}

// DefaultID returns the configured default provider id.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// Has reports whether the id (or the default, when empty) is registered.
func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
