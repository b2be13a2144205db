// Package storage provides the key/blob backends the board persists to.
//
// Every backend implements the same two calls: Load returns the blob stored
// under a key together with whether it exists, Save overwrites it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Backend is implemented by every persistence backend.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
}

var errEmptyKey = errors.New("storage: empty key")

func validateKey(key string) error {
	if key == "" {
		return errEmptyKey
	}
	if strings.ContainsAny(key, `/\#?`) || strings.Contains(key, "..") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// Memory keeps blobs in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}
