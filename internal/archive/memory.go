package archive

import (
	"context"
	"sort"
	"sync"
)

type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[Namespace]map[string][]byte
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[Namespace]map[string][]byte)}
}

func (a *MemoryArchive) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.objects[ns][key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (a *MemoryArchive) Put(ctx context.Context, ns Namespace, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.objects[ns] == nil {
		a.objects[ns] = make(map[string][]byte)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	a.objects[ns][key] = stored

	return nil
}

func (a *MemoryArchive) Exists(ctx context.Context, ns Namespace, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.objects[ns][key]
	return ok, nil
}

func (a *MemoryArchive) List(ctx context.Context, ns Namespace) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, 0, len(a.objects[ns]))
	for key := range a.objects[ns] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}
