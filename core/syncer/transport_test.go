package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redesblock/stash/core/storage"
	"github.com/redesblock/stash/core/syncer"
)

func TestHTTPTransport(t *testing.T) {
	type call struct {
		method string
		path   string
		body   []byte
	}
	var calls []call
	var status int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		calls = append(calls, call{method: r.Method, path: r.URL.Path, body: body})
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "remote-7"})
	}))
	defer srv.Close()

	transport := syncer.NewHTTPTransport(srv.URL, srv.Client())
	ctx := context.Background()

	t.Run("create posts to the collection", func(t *testing.T) {
		calls = nil
		remoteID, err := transport.Send(ctx, storage.SyncOperation{
			Action:     storage.ActionCreate,
			TargetType: "article",
			Data:       json.RawMessage(`{"title":"x"}`),
		})
		if err != nil {
			t.Fatal(err)
		}
		if remoteID != "remote-7" {
			t.Errorf("got remote id %q, want %q", remoteID, "remote-7")
		}
		if len(calls) != 1 {
			t.Fatalf("got %v calls, want 1", len(calls))
		}
		if calls[0].method != http.MethodPost {
			t.Errorf("got method %q, want %q", calls[0].method, http.MethodPost)
		}
		if calls[0].path != "/article" {
			t.Errorf("got path %q, want %q", calls[0].path, "/article")
		}
		if string(calls[0].body) != `{"title":"x"}` {
			t.Errorf("got body %q, want %q", calls[0].body, `{"title":"x"}`)
		}
	})

	t.Run("update puts to the item", func(t *testing.T) {
		calls = nil
		if _, err := transport.Send(ctx, storage.SyncOperation{
			Action:     storage.ActionUpdate,
			TargetType: "article",
			Data:       json.RawMessage(`{"id":"a1","title":"x"}`),
		}); err != nil {
			t.Fatal(err)
		}
		if calls[0].method != http.MethodPut {
			t.Errorf("got method %q, want %q", calls[0].method, http.MethodPut)
		}
		if calls[0].path != "/article/a1" {
			t.Errorf("got path %q, want %q", calls[0].path, "/article/a1")
		}
	})

	t.Run("delete addresses the item without a body", func(t *testing.T) {
		calls = nil
		if _, err := transport.Send(ctx, storage.SyncOperation{
			Action:     storage.ActionDelete,
			TargetType: "article",
			Data:       json.RawMessage(`{"id":"a1"}`),
		}); err != nil {
			t.Fatal(err)
		}
		if calls[0].method != http.MethodDelete {
			t.Errorf("got method %q, want %q", calls[0].method, http.MethodDelete)
		}
		if calls[0].path != "/article/a1" {
			t.Errorf("got path %q, want %q", calls[0].path, "/article/a1")
		}
		if len(calls[0].body) != 0 {
			t.Errorf("got body %q, want empty", calls[0].body)
		}
	})

	t.Run("error status is a transport error", func(t *testing.T) {
		status = http.StatusBadGateway
		defer func() { status = 0 }()

		_, err := transport.Send(ctx, storage.SyncOperation{
			Action:     storage.ActionCreate,
			TargetType: "article",
			Data:       json.RawMessage(`{}`),
		})
		var te *syncer.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("got error %v, want a transport error", err)
		}
		if te.StatusCode != http.StatusBadGateway {
			t.Errorf("got status %v, want %v", te.StatusCode, http.StatusBadGateway)
		}
	})
}
