package jsondb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
)

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		fileName := filepath.Join(t.TempDir(), "data", "users.json")

		theStorage, err := New(fileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)
		defer func() {
			err := theStorage.Close()
			require.NoError(t, err)
		}()

		var _ storage.Storage = theStorage

		_, err = theStorage.ReadCollection(context.Background())
		assert.ErrorIs(t, err, storage.ErrNoCollection, "a missing file is a missing collection")

		err = theStorage.RemoveCollection(context.Background())
		assert.ErrorIs(t, err, storage.ErrNoCollection)

		err = theStorage.Ping(context.Background())
		assert.NoError(t, err, "The jsondb.Ping() should not return error")

		err = theStorage.WriteCollection(context.Background(), []byte(`[{"id":1}]`))
		require.NoError(t, err, "The first write should create the file and its directory")

		data, err := theStorage.ReadCollection(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1}]`, string(data))

		err = theStorage.WriteCollection(context.Background(), []byte(`[]`))
		require.NoError(t, err)

		data, err = theStorage.ReadCollection(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data), "The file should be truncated on rewrite")

		err = theStorage.RemoveCollection(context.Background())
		require.NoError(t, err)

		_, err = os.Stat(fileName)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Empty file name", func(t *testing.T) {
		_, err := New("")
		assert.Error(t, err)
	})
}
