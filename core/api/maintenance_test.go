package api_test

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"testing"

	stash "github.com/redesblock/stash"
	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/jsonhttp/jsonhttptest"
)

func TestHealth(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{Online: true})
	defer cleanup()

	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Online  bool   `json:"online"`
	}
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/health", nil, http.StatusOK, &resp)
	if resp.Status != "ok" {
		t.Errorf("got status %q, want %q", resp.Status, "ok")
	}
	if resp.Version != stash.Version {
		t.Errorf("got version %q, want %q", resp.Version, stash.Version)
	}
	if !resp.Online {
		t.Error("got offline, want online")
	}
}

func TestCleanupAndClear(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPut, "/records/article/a1", bytes.NewReader([]byte(`{"x":1}`)), http.StatusCreated, &recordResponse{})

	jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/cleanup", nil, http.StatusOK, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusOK),
		Code:    http.StatusOK,
	})

	jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/clear", nil, http.StatusOK, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusOK),
		Code:    http.StatusOK,
	})
	jsonhttptest.ResponseDirect(t, client, http.MethodGet, "/records/a1", nil, http.StatusNotFound, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusNotFound),
		Code:    http.StatusNotFound,
	})
}

func TestExportImport(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPut, "/records/article/a1", bytes.NewReader([]byte(`{"x":1}`)), http.StatusCreated, &recordResponse{})

	req, err := http.NewRequest(http.MethodGet, "/export", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-tar" {
		t.Errorf("got content type %q, want %q", ct, "application/x-tar")
	}
	archive, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/clear", nil, http.StatusOK, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusOK),
		Code:    http.StatusOK,
	})

	jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/import", bytes.NewReader(archive), http.StatusOK, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusOK),
		Code:    http.StatusOK,
	})

	var rec recordResponse
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/records/a1", nil, http.StatusOK, &rec)
	if rec.ID != "a1" {
		t.Errorf("got id %q, want %q", rec.ID, "a1")
	}

	t.Run("import invalid archive", func(t *testing.T) {
		jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/import", bytes.NewReader([]byte("garbage")), http.StatusBadRequest, jsonhttp.StatusResponse{
			Message: "engine: invalid archive",
			Code:    http.StatusBadRequest,
		})
	})
}
