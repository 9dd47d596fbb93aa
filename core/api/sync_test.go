package api_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/jsonhttp/jsonhttptest"
	"github.com/redesblock/stash/core/storage"
)

func TestSyncQueue(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	t.Run("enqueue", func(t *testing.T) {
		body := []byte(`{"action":"create","targetType":"article","data":{"id":"a1"},"priority":"high"}`)
		jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/sync/queue", bytes.NewReader(body), http.StatusCreated, jsonhttp.StatusResponse{
			Message: http.StatusText(http.StatusCreated),
			Code:    http.StatusCreated,
		})
	})

	t.Run("enqueue invalid action", func(t *testing.T) {
		body := []byte(`{"action":"upsert","targetType":"article","data":{}}`)
		jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/sync/queue", bytes.NewReader(body), http.StatusBadRequest, jsonhttp.StatusResponse{
			Message: "invalid action",
			Code:    http.StatusBadRequest,
		})
	})

	t.Run("list", func(t *testing.T) {
		var ops []storage.SyncOperation
		jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/sync/queue", nil, http.StatusOK, &ops)
		if len(ops) != 1 {
			t.Fatalf("got %v operations, want 1", len(ops))
		}
		if ops[0].Action != storage.ActionCreate {
			t.Errorf("got action %q, want %q", ops[0].Action, storage.ActionCreate)
		}
		if ops[0].TargetType != "article" {
			t.Errorf("got target type %q, want %q", ops[0].TargetType, "article")
		}
	})

	t.Run("stats", func(t *testing.T) {
		var stats storage.SyncStats
		jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/sync/stats", nil, http.StatusOK, &stats)
		if stats.QueueSize != 1 {
			t.Errorf("got queue size %v, want 1", stats.QueueSize)
		}
	})
}

func TestSyncProcess(t *testing.T) {
	client, _, cleanup := newTestServer(t, testServerOptions{Online: true})
	defer cleanup()

	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPut, "/records/article/a1", bytes.NewReader([]byte(`{"id":"a1"}`)), http.StatusCreated, &recordResponse{})

	body := []byte(`{"action":"update","targetType":"article","data":{"id":"a1"}}`)
	jsonhttptest.ResponseDirect(t, client, http.MethodPost, "/sync/queue", bytes.NewReader(body), http.StatusCreated, jsonhttp.StatusResponse{
		Message: http.StatusText(http.StatusCreated),
		Code:    http.StatusCreated,
	})

	var ops []storage.SyncOperation
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/sync/queue", nil, http.StatusOK, &ops)
	if len(ops) != 0 {
		t.Fatalf("got %v operations, want 0 after online enqueue", len(ops))
	}

	var resp struct {
		Completed int `json:"completed"`
	}
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPost, "/sync", nil, http.StatusOK, &resp)
	if resp.Completed != 0 {
		t.Errorf("got %v completed, want 0 on drained queue", resp.Completed)
	}

	var rec recordResponse
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodGet, "/records/a1", nil, http.StatusOK, &rec)
	if !rec.Synced {
		t.Error("record must be synced after queue drain")
	}
}

func TestOnline(t *testing.T) {
	client, e, cleanup := newTestServer(t, testServerOptions{})
	defer cleanup()

	if e.Online() {
		t.Fatal("engine must start offline")
	}

	var resp struct {
		Online bool `json:"online"`
	}
	jsonhttptest.ResponseUnmarshal(t, client, http.MethodPut, "/online", bytes.NewReader([]byte(`{"online":true}`)), http.StatusOK, &resp)
	if !resp.Online {
		t.Error("got offline, want online")
	}
	if !e.Online() {
		t.Error("engine must be online")
	}
}
