// Package storage describes the backing stores of the user list.
// A backing store keeps the serialized collection as one opaque blob.
package storage

import (
	"context"
	"errors"
)

// ErrNoCollection is returned when the backing store holds no collection.
var ErrNoCollection = errors.New("the user collection does not exist")

// Storage is implemented by every backing store.
type Storage interface {
	// ReadCollection returns the serialized collection or ErrNoCollection.
	ReadCollection(ctx context.Context) ([]byte, error)

	// WriteCollection replaces the serialized collection, creating it when absent.
	WriteCollection(ctx context.Context, data []byte) error

	// RemoveCollection deletes the collection or returns ErrNoCollection.
	RemoveCollection(ctx context.Context) error

	Ping(ctx context.Context) error

	Close() error
}
