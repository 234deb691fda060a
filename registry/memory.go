// Package registry provides device-token registries for the dispatch layer:
// an in-memory implementation, a Redis-backed one, and a read-aside caching
// decorator for slow source-of-truth registries.
package registry

import (
	"context"
	"sync"
)

// MemoryRegistry keeps tokens in process memory. Suitable for tests and
// single-instance deployments.
type MemoryRegistry struct {
	mu     sync.RWMutex
	tokens map[string]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tokens: map[string]map[string]struct{}{}}
}

func (r *MemoryRegistry) Register(_ context.Context, recipient, deviceToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.tokens[recipient]
	if !ok {
		set = map[string]struct{}{}
		r.tokens[recipient] = set
	}
	set[deviceToken] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, recipient, deviceToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.tokens[recipient]; ok {
		delete(set, deviceToken)
		if len(set) == 0 {
			delete(r.tokens, recipient)
		}
	}
	return nil
}

func (r *MemoryRegistry) Tokens(_ context.Context, recipient string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.tokens[recipient]
	out := make([]string, 0, len(set))
	for token := range set {
		out = append(out, token)
	}
	return out, nil
}
