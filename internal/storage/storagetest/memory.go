// Package storagetest provides an in-process ObjectStore for tests.
package storagetest

import (
	"context"
	"sync"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
)

var _ storage.ObjectStore = (*Memory)(nil)

type memoryObject struct {
	data        []byte
	contentType string
}

// Memory keeps objects in a map. PutErr and DeleteErr inject failures.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string]memoryObject
	PutErr    error
	DeleteErr error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	if !storage.ValidKey(key) {
		return storage.ErrInvalidKey
	}
	if _, ok := m.objects[key]; ok {
		return storage.ErrObjectExists
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return obj.data, obj.contentType, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
