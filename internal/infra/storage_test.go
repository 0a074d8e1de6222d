package infra

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"luxscaler/internal/config"
)

func newTestStorage(t *testing.T, h http.HandlerFunc) ObjectStorage {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Storage: config.StorageConfig{URL: srv.URL, ServiceKey: "service-key", Bucket: "generations"}}
	return NewObjectStorage(cfg, zaptest.NewLogger(t))
}

func TestUpload_SendsObjectToBucket(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"generations/u/1.png"}`))
	})

	err := storage.Upload(context.Background(), "u 1/out.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "/object/generations/u%201/out.png", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "png-bytes", string(gotBody))
}

func TestDelete_ReportsRemovedObjects(t *testing.T) {
	var prefixes map[string][]string
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&prefixes)
		_, _ = w.Write([]byte(`[{"name":"a.png"}]`))
	})

	n, err := storage.Delete(context.Background(), []string{"a.png", "missing.png"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a.png", "missing.png"}, prefixes["prefixes"])
}

func TestUpload_SurfacesBackendError(t *testing.T) {
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	})

	err := storage.Upload(context.Background(), "x.png", "image/png", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found")
}

func TestStorage_NotConfigured(t *testing.T) {
	storage := NewObjectStorage(&config.Config{}, zaptest.NewLogger(t))

	assert.ErrorIs(t, storage.Upload(context.Background(), "x", "image/png", nil), ErrStorageNotConfigured)
	n, err := storage.Delete(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
