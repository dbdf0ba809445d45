// Package hydrate resolves the asset URLs a rendered match needs, one
// identifier at a time, and tracks what is still pending for placeholders.
package hydrate

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// PendingSet is the set of asset keys currently being resolved. It only
// drives placeholders; request de-duplication happens in the URL cache.
type PendingSet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewPendingSet creates an empty set
func NewPendingSet() *PendingSet {
	return &PendingSet{keys: make(map[string]struct{})}
}

// Add marks key as pending. It returns false if key was already pending.
func (p *PendingSet) Add(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.keys[key]; ok {
		return false
	}
	p.keys[key] = struct{}{}
	return true
}

// Remove clears the pending flag of key
func (p *PendingSet) Remove(key string) {
	p.mu.Lock()
	delete(p.keys, key)
	p.mu.Unlock()
}

// Has reports whether key is pending
func (p *PendingSet) Has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.keys[key]
	return ok
}

// Keys returns the pending keys in sorted order
func (p *PendingSet) Keys() []string {
	p.mu.RLock()
	keys := lo.Keys(p.keys)
	p.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of pending keys
func (p *PendingSet) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}
