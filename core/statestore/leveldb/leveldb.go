// Package leveldb implements the storage.StateStorer interface on top
// of a LevelDB instance with JSON serialized values. It holds the sync
// queue and the settings and metadata singletons.
package leveldb

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberr "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
)

type store struct {
	db     *leveldb.DB
	logger logging.Logger
}

// NewStateStore creates a new persistent state storage at the
// given path.
func NewStateStore(path string, l logging.Logger) (storage.StateStorer, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if !ldberr.IsCorrupted(err) {
			return nil, err
		}
		l.Warningf("statestore open failed: %v. attempting recovery", err)
		db, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, fmt.Errorf("statestore recovery: %w", err)
		}
		l.Warning("statestore recovery ok, you are kindly request to inform us about the steps that preceded the last shutdown")
	}
	return &store{
		db:     db,
		logger: l,
	}, nil
}

// Get retrieves a value of the requested key. If no results are found,
// storage.ErrNotFound is returned.
func (s *store) Get(key string, i interface{}) error {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return storage.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, i)
}

// Put stores a value for an arbitrary key. JSON serialization is used.
func (s *store) Put(key string, i interface{}) error {
	bytes, err := json.Marshal(i)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), bytes, nil)
}

// Delete removes entries stored under a specific key.
func (s *store) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

// Iterate entries that match the supplied prefix.
func (s *store) Iterate(prefix string, iterFunc storage.StateIterFunc) (err error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		stop, err := iterFunc(append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...))
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return iter.Error()
}

// Close releases the resources used by the store.
func (s *store) Close() error {
	return s.db.Close()
}
