package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		assert.NoError(t, err, "The memorystorage.New() should not return error")

		_, err = theStorage.ReadCollection(context.Background())
		assert.ErrorIs(t, err, storage.ErrNoCollection)

		err = theStorage.WriteCollection(context.Background(), []byte{})
		require.NoError(t, err)

		data, err := theStorage.ReadCollection(context.Background())
		assert.NoError(t, err, "An empty written collection still exists")
		assert.Empty(t, data)

		payload := []byte(`[{"id":1}]`)
		err = theStorage.WriteCollection(context.Background(), payload)
		require.NoError(t, err)
		payload[2] = 'X'

		data, err = theStorage.ReadCollection(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(data), "The storage should keep its own copy")

		err = theStorage.RemoveCollection(context.Background())
		assert.NoError(t, err)

		err = theStorage.RemoveCollection(context.Background())
		assert.ErrorIs(t, err, storage.ErrNoCollection)

		err = theStorage.Ping(context.Background())
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})

	t.Run("Prefilled storage", func(t *testing.T) {
		theStorage := NewWithCollection([]byte(`[]`))

		data, err := theStorage.ReadCollection(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))
	})
}
