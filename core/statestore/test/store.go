// Package test provides a suite of tests that every storage.StateStorer
// implementation must pass.
package test

import (
	"errors"
	"strings"
	"testing"

	"github.com/redesblock/stash/core/storage"
)

// Run executes the StateStorer behavior suite against the store
// returned by the provided constructor.
func Run(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	t.Helper()

	t.Run("put and get", func(t *testing.T) {
		store := f(t)
		defer store.Close()

		want := "some value"
		if err := store.Put("key", want); err != nil {
			t.Fatal(err)
		}
		var got string
		if err := store.Get("key", &got); err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got value %q, want %q", got, want)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store := f(t)
		defer store.Close()

		var got string
		err := store.Get("missing", &got)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := f(t)
		defer store.Close()

		if err := store.Put("key", "value"); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete("key"); err != nil {
			t.Fatal(err)
		}
		var got string
		if err := store.Get("key", &got); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
		}
		// deleting a missing key must not fail
		if err := store.Delete("key"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("iterate prefix", func(t *testing.T) {
		store := f(t)
		defer store.Close()

		for _, k := range []string{"q_0001", "q_0002", "q_0003", "other"} {
			if err := store.Put(k, k); err != nil {
				t.Fatal(err)
			}
		}
		var keys []string
		err := store.Iterate("q_", func(key, value []byte) (stop bool, err error) {
			keys = append(keys, string(key))
			return false, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 3 {
			t.Fatalf("got %v keys, want %v", len(keys), 3)
		}
		for i, k := range keys {
			if !strings.HasPrefix(k, "q_") {
				t.Errorf("got key %q without iterated prefix", k)
			}
			if i > 0 && keys[i-1] > k {
				t.Errorf("got key %q after %q, want ascending order", k, keys[i-1])
			}
		}
	})
}

// RunPersist executes persistence tests against a store constructed
// twice over the same directory.
func RunPersist(t *testing.T, f func(t *testing.T, dir string) storage.StateStorer) {
	t.Helper()

	dir := t.TempDir()

	store := f(t, dir)
	if err := store.Put("key", "persisted value"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store = f(t, dir)
	defer store.Close()

	var got string
	if err := store.Get("key", &got); err != nil {
		t.Fatal(err)
	}
	want := "persisted value"
	if got != want {
		t.Errorf("got value %q, want %q", got, want)
	}
}
