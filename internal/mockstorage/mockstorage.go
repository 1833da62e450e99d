// Package mockstorage provides a testify-based mock of the backing store
// and of the default user list source. It is used to simulate storage failures in tests.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/userlist/internal/models"
)

// StorageMock is a testify mock implementing storage.Storage.
type StorageMock struct {
	mock.Mock
}

// ReadCollection mocks reading the serialized collection.
func (m *StorageMock) ReadCollection(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// WriteCollection mocks replacing the serialized collection.
func (m *StorageMock) WriteCollection(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// RemoveCollection mocks deleting the collection.
func (m *StorageMock) RemoveCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// FetcherMock is a testify mock of the default user list source.
type FetcherMock struct {
	mock.Mock
}

// FetchUsers mocks downloading the default collection.
func (m *FetcherMock) FetchUsers(ctx context.Context) (models.Users, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).(models.Users)
	return users, args.Error(1)
}
