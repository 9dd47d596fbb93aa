package api_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/redesblock/stash/core/jsonhttp/jsonhttptest"
	"github.com/redesblock/stash/core/settings"
	"github.com/redesblock/stash/core/storage"
)

func TestSettings(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		var s storage.Settings
		jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/settings", nil, http.StatusOK, &s)
		if s.MaxCacheSize != settings.DefaultMaxCacheSize {
			t.Errorf("got max cache size %v, want %v", s.MaxCacheSize, settings.DefaultMaxCacheSize)
		}
		if s.MaxAgeHours != settings.DefaultMaxAgeHours {
			t.Errorf("got max age %v, want %v", s.MaxAgeHours, settings.DefaultMaxAgeHours)
		}
		if !s.SyncOnReconnect || !s.CompressionEnabled || !s.PriorityOrdering {
			t.Errorf("got settings %+v, want all toggles enabled", s)
		}
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"maxAgeHours":48,"compressionEnabled":false}`)
		var s storage.Settings
		jsonhttptest.ResponseUnmarshal(t, client, http.MethodPatch, "/settings", bytes.NewReader(body), http.StatusOK, &s)
		if s.MaxAgeHours != 48 {
			t.Errorf("got max age %v, want 48", s.MaxAgeHours)
		}
		if s.CompressionEnabled {
			t.Error("compression must be disabled")
		}
		if s.MaxCacheSize != settings.DefaultMaxCacheSize {
			t.Errorf("got max cache size %v, want untouched default %v", s.MaxCacheSize, settings.DefaultMaxCacheSize)
		}
	})
}

func TestMetadata(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPut, "/records/article/a1", bytes.NewReader([]byte(`{"x":1}`)), http.StatusCreated, &recordResponse{})

	var m storage.Metadata
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/metadata", nil, http.StatusOK, &m)
	if m.TotalSize == 0 {
		t.Error("got zero total size, want accounted record")
	}
}
