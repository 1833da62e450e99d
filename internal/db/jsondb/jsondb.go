// Package jsondb keeps the user collection in a single JSON file.
// The file is read and rewritten in full on every call and never cached,
// so several processes (or requests) see each other's writes, including lost updates.
package jsondb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
)

// JSONDB is a file-backed storage.Storage.
type JSONDB struct {
	fileName string
}

// New returns a JSONDB over fileName. The file itself is created by the first write.
func New(fileName string) (*JSONDB, error) {
	if fileName == "" {
		return nil, errors.New("in internal/db/jsondb/jsondb.go/New(): empty file name")
	}

	return &JSONDB{
		fileName: fileName,
	}, nil
}

// FileName returns the path of the backing file.
func (db *JSONDB) FileName() string {
	return db.fileName
}

// ReadCollection returns the raw content of the backing file.
func (db *JSONDB) ReadCollection(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(db.fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNoCollection
		}
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/ReadCollection(): error while `os.ReadFile()` calling: %w", err)
	}

	return data, nil
}

// WriteCollection truncates the backing file and writes data into it.
func (db *JSONDB) WriteCollection(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(db.fileName), 0755); err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/WriteCollection(): error while `os.MkdirAll()` calling: %w", err)
	}

	file, err := os.OpenFile(db.fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/WriteCollection(): error while `os.OpenFile()` calling: %w", err)
	}

	_, err = file.Write(data)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/WriteCollection(): error while `file.Write()` calling: %w", err)
	}

	return file.Close()
}

// RemoveCollection deletes the backing file.
func (db *JSONDB) RemoveCollection(ctx context.Context) error {
	err := os.Remove(db.fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNoCollection
		}
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/RemoveCollection(): error while `os.Remove()` calling: %w", err)
	}

	return nil
}

// Ping checks that the directory of the backing file is reachable.
func (db *JSONDB) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(db.fileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (db *JSONDB) Close() error {
	return nil
}
