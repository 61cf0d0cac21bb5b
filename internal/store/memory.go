package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Memory keeps encoded event logs in a map. It is safe for concurrent use.
type Memory struct {
	logStore
	mem *memoryKV
}

// NewMemory creates an empty in-memory database.
func NewMemory() *Memory {
	m := &memoryKV{data: make(map[string][]byte)}
	return &Memory{logStore: logStore{kv: m}, mem: m}
}

// Len returns the number of stored entities.
func (m *Memory) Len() int {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()
	return len(m.mem.data)
}

type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (m *memoryKV) set(key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, exception.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) scan(prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if err := fn(k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryKV) close() error { return nil }
