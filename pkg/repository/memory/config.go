package memory

import (
	"context"
	"sync"
)

type configRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func newConfigRepository() *configRepository {
	return &configRepository{
		values: make(map[string]string),
	}
}

func (r *configRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key], nil
}

func (r *configRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *configRepository) List(ctx context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make(map[string]string, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return values, nil
}
