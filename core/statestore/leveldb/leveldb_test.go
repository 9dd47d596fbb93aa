package leveldb_test

import (
	"io/ioutil"
	"testing"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/statestore/leveldb"
	"github.com/redesblock/stash/core/statestore/test"
	"github.com/redesblock/stash/core/storage"
)

func TestPersistentStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) storage.StateStorer {
		store, err := leveldb.NewStateStore(t.TempDir(), logging.New(ioutil.Discard, 0))
		if err != nil {
			t.Fatal(err)
		}
		return store
	})

	test.RunPersist(t, func(t *testing.T, dir string) storage.StateStorer {
		store, err := leveldb.NewStateStore(dir, logging.New(ioutil.Discard, 0))
		if err != nil {
			t.Fatal(err)
		}
		return store
	})
}
