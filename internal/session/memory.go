package session

import (
	"context"
	"sync"

	"github.com/sells-group/pantry-finder/internal/model"
)

// Memory is an in-process Store. Selections are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]model.Categories
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]model.Categories)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, id string) (model.Categories, error) {
	if err := checkID(id); err != nil {
		return model.Categories{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Normalized copies so callers never share slices with the map.
	return m.data[id].Normalized(), nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, id string, cats model.Categories) error {
	if err := checkID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = cats.Normalized()
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Migrate implements Store.
func (m *Memory) Migrate(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }
