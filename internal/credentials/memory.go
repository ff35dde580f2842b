package credentials

import "sync"

// Memory is an in-memory Store for tests.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(service, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[service+"/"+account]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(service, account, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[service+"/"+account] = value
	return nil
}

func (m *Memory) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, service+"/"+account)
	return nil
}
