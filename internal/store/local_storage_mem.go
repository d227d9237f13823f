package store

import (
	"context"
	"sync"
)

// Memory keeps every namespace in process memory.
type Memory struct {
	mu    sync.Mutex
	items map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[string]string)}
}

func (m *Memory) Namespace(id string) LocalStorage {
	return &memoryNamespace{parent: m, id: id}
}

type memoryNamespace struct {
	parent *Memory
	id     string
}

func (n *memoryNamespace) GetItem(_ context.Context, key string) (string, bool, error) {
	n.parent.mu.Lock()
	defer n.parent.mu.Unlock()
	v, ok := n.parent.items[n.id][key]
	return v, ok, nil
}

func (n *memoryNamespace) SetItem(_ context.Context, key, value string) error {
	n.parent.mu.Lock()
	defer n.parent.mu.Unlock()
	ns, ok := n.parent.items[n.id]
	if !ok {
		ns = make(map[string]string)
		n.parent.items[n.id] = ns
	}
	ns[key] = value
	return nil
}

func (n *memoryNamespace) RemoveItem(_ context.Context, key string) error {
	n.parent.mu.Lock()
	defer n.parent.mu.Unlock()
	delete(n.parent.items[n.id], key)
	return nil
}
