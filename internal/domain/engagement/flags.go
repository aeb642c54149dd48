package engagement

import "sync"

// FlagStore persists write-once "already fired" flags across page reloads.
// Implementations swallow their own failures: an unreadable flag is unset.
type FlagStore interface {
	Get(key string) bool
	Set(key string, value bool)
}

// MemoryFlags is a process-local FlagStore.
type MemoryFlags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]bool)}
}

func (m *MemoryFlags) Get(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key]
}

func (m *MemoryFlags) Set(key string, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value {
		m.flags[key] = true
		return
	}
	delete(m.flags, key)
}

// PrefixedFlags namespaces every key of an underlying store.
type PrefixedFlags struct {
	Store  FlagStore
	Prefix string
}

func (p PrefixedFlags) Get(key string) bool {
	if p.Store == nil {
		return false
	}
	return p.Store.Get(p.Prefix + key)
}

func (p PrefixedFlags) Set(key string, value bool) {
	if p.Store == nil {
		return
	}
	p.Store.Set(p.Prefix+key, value)
}
