package license

import (
	"sync"

	"mediapack/internal/device"
)

// Builder accumulates an allowlist while authoring. Add keeps existing
// entries and appends new ones; Replace discards everything first. Both are
// explicit because authors rely on either behaviour.
type Builder struct {
	hasher Hasher

	mu      sync.Mutex
	current *Allowlist
}

// NewBuilder starts from an empty allowlist.
func NewBuilder(hasher Hasher) *Builder {
	return &Builder{hasher: hasher, current: &Allowlist{index: map[string]struct{}{}}}
}

// Add appends the identities' hashes, keeping every existing entry. It
// returns the number of entries that were new.
func (b *Builder) Add(identities ...device.Identity) int {
	return b.merge(b.hasher.Build(identities))
}

// Replace discards the current entries and installs the identities' hashes.
func (b *Builder) Replace(identities ...device.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.hasher.Build(identities)
}

// Import merges an existing allowlist, keeping current entries first. It
// returns the number of entries that were new.
func (b *Builder) Import(other *Allowlist) int {
	return b.merge(other)
}

func (b *Builder) merge(other *Allowlist) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := &Allowlist{index: make(map[string]struct{}, b.current.Len()+other.Len())}
	for _, hash := range b.current.entries {
		next.add(hash)
	}
	added := 0
	for _, hash := range other.Entries() {
		if next.add(hash) {
			added++
		}
	}
	b.current = next
	return added
}

// Allowlist returns an immutable snapshot of the current entries.
func (b *Builder) Allowlist() *Allowlist {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
