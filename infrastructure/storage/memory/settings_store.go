package memory

import (
	"context"
	"sync"

	"github.com/legisflow/legisflow/domain/routing"
)

// SettingsStore is an in-memory implementation of routing.Settings.
type SettingsStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewSettingsStore creates a settings store seeded with initial values.
func NewSettingsStore(initial map[string]string) *SettingsStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &SettingsStore{values: values}
}

// Get returns a setting value.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", routing.ErrSettingNotFound
	}
	return v, nil
}

// Set stores a setting value.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// All returns a copy of every setting.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(s.values))
	for k, v := range s.values {
		result[k] = v
	}
	return result, nil
}

var _ routing.Settings = (*SettingsStore)(nil)
