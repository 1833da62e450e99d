package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(plain)
}

func TestGzipResponse(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))

	t.Run("client_accepts_gzip", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		assert.Equal(t, `{"status":"success"}`, gunzip(t, w.Body.Bytes()))
	})

	t.Run("client_without_gzip", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, `{"status":"success"}`, w.Body.String())
	})

	t.Run("protocol_upgrade", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Accept-Encoding", "gzip")
		request.Header.Set("Upgrade", "websocket")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, request)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})
}

func TestGzipResponseEmptyBody(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, request)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Zero(t, w.Body.Len())
}

func TestGzipResponseFlush(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("</html>"))
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, request)

	assert.True(t, w.Flushed)
	assert.Equal(t, "<html></html>", gunzip(t, w.Body.Bytes()))
}

func TestUngzipJSONAndTextHTMLRequest(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"name":"X"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var received string
	handler := UngzipJSONAndTextHTMLRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = string(body)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/v1/users", &buf)
	request.Header.Set("Content-Encoding", "gzip")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, `{"name":"X"}`, received)

	request = httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("not gzip"))
	request.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, request)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
