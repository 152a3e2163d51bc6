package directory

import (
	"context"
	"sync"
)

// Settings is a snapshot of the system_parameters table. It is loaded once at
// startup and replaced wholesale by Reload; callers never observe a partially
// updated view.
type Settings struct {
	mu     sync.RWMutex
	store  Store
	values map[string]string
}

func LoadSettings(ctx context.Context, store Store) (*Settings, error) {
	s := &Settings{store: store}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Reload(ctx context.Context) error {
	params, err := s.store.ListParameters(ctx)
	if err != nil {
		return err
	}
	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.Key] = p.Value
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

func (s *Settings) Get(key, fallback string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}
