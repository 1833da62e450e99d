package memorystorage

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
)

// MemoryStorage keeps the serialized collection in process memory.
// It is used when neither a database nor a file is configured, and by tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data []byte
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{}, nil
}

// NewWithCollection returns a MemoryStorage that already holds data.
func NewWithCollection(data []byte) *MemoryStorage {
	theStorage := &MemoryStorage{}
	theStorage.data = append(make([]byte, 0, len(data)), data...)
	return theStorage
}

func (theStorage *MemoryStorage) ReadCollection(ctx context.Context) ([]byte, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	if theStorage.data == nil {
		return nil, storage.ErrNoCollection
	}

	return append([]byte(nil), theStorage.data...), nil
}

func (theStorage *MemoryStorage) WriteCollection(ctx context.Context, data []byte) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	theStorage.data = append(make([]byte, 0, len(data)), data...)

	return nil
}

func (theStorage *MemoryStorage) RemoveCollection(ctx context.Context) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.data == nil {
		return storage.ErrNoCollection
	}
	theStorage.data = nil

	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
