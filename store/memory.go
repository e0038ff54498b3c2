package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

// Memory is an in-process Store with the same whole-document semantics
// as Redis. Tests use it; sendpanel can run against it for dry runs.
type Memory struct {
	mu       sync.Mutex
	sections map[string][]byte
	registry []byte
	locks    keyLocks
}

func NewMemory() *Memory {
	return &Memory{sections: make(map[string][]byte)}
}

func (m *Memory) ListSectionIDs() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sections))
	for id := range m.sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) LoadSection(id string) (*datastructs.Section, error) {
	m.mu.Lock()
	raw, ok := m.sections[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var sec datastructs.Section
	if err := json.Unmarshal(raw, &sec); err != nil {
		return nil, fmt.Errorf("store: decode section %s: %w", id, err)
	}
	return &sec, nil
}

func (m *Memory) SaveSection(sec *datastructs.Section) error {
	raw, err := json.Marshal(sec)
	if err != nil {
		return fmt.Errorf("store: encode section %s: %w", sec.ID, err)
	}
	m.mu.Lock()
	m.sections[sec.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) UpdateSection(id string, fn func(*datastructs.Section) error) (*datastructs.Section, error) {
	lock := m.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	sec, err := m.LoadSection(id)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("store: update section %s: %w", id, ErrNotFound)
	}
	if err := fn(sec); err != nil {
		return nil, err
	}
	if err := m.SaveSection(sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (m *Memory) DeleteSection(id string) error {
	lock := m.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.sections, id)
	m.mu.Unlock()

	_, err := m.UpdateRegistry(func(reg *datastructs.Registry) error {
		stripSection(reg, id)
		return nil
	})
	return err
}

func (m *Memory) LoadRegistry() (*datastructs.Registry, error) {
	m.mu.Lock()
	raw := m.registry
	m.mu.Unlock()
	if raw == nil {
		return &datastructs.Registry{}, nil
	}
	reg, err := decodeRegistry(raw)
	if err != nil {
		return nil, fmt.Errorf("store: decode registry: %w", err)
	}
	return reg, nil
}

func (m *Memory) SaveRegistry(reg *datastructs.Registry) error {
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("store: encode registry: %w", err)
	}
	m.mu.Lock()
	m.registry = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) UpdateRegistry(fn func(*datastructs.Registry) error) (*datastructs.Registry, error) {
	lock := m.locks.get(registryLockKey)
	lock.Lock()
	defer lock.Unlock()

	reg, err := m.LoadRegistry()
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	if err := m.SaveRegistry(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
