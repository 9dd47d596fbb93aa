// Package shed provides abstractions over LevelDB in order to implement
// complex structures using fields and ordered indexes. It provides a
// schema functionality to store fields and indexes information about
// naming and types.
package shed

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/redesblock/stash/core/logging"
)

const (
	openFileLimit = 128 // The limit for LevelDB OpenFilesCacheCapacity.
)

// ErrNotFound is the shed representation of a missing key.
var ErrNotFound = leveldb.ErrNotFound

// DB wraps a LevelDB instance and provides schema'd fields and ordered
// indexes on top of it.
type DB struct {
	ldb     *leveldb.DB
	metrics metrics
	logger  logging.Logger
}

// NewDB constructs a new DB and validates the schema
// if it exists in database on the given path.
func NewDB(path string, logger logging.Logger) (db *DB, err error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: openFileLimit,
	})
	if err != nil {
		return nil, err
	}
	db = &DB{
		ldb:     ldb,
		metrics: newMetrics(),
		logger:  logger,
	}

	if _, err = db.getSchema(); err != nil {
		if err == leveldb.ErrNotFound {
			// save schema with initialized default fields
			if err = db.putSchema(schema{
				Fields:  make(map[string]fieldSpec),
				Indexes: make(map[byte]indexSpec),
			}); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	return db, nil
}

// Put wraps LevelDB Put method to increment metrics counter.
func (db *DB) Put(key []byte, value []byte) (err error) {
	err = db.ldb.Put(key, value, nil)
	if err != nil {
		db.metrics.PutFailCounter.Inc()
		return err
	}
	db.metrics.PutCounter.Inc()
	return nil
}

// Get wraps LevelDB Get method to increment metrics counter.
func (db *DB) Get(key []byte) (value []byte, err error) {
	value, err = db.ldb.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			db.metrics.GetNotFoundCounter.Inc()
		} else {
			db.metrics.GetFailCounter.Inc()
		}
		return nil, err
	}
	db.metrics.GetCounter.Inc()
	return value, nil
}

// Has wraps LevelDB Has method to increment metrics counter.
func (db *DB) Has(key []byte) (yes bool, err error) {
	yes, err = db.ldb.Has(key, nil)
	if err != nil {
		db.metrics.HasFailCounter.Inc()
		return false, err
	}
	db.metrics.HasCounter.Inc()
	return yes, nil
}

// Delete wraps LevelDB Delete method to increment metrics counter.
func (db *DB) Delete(key []byte) (err error) {
	err = db.ldb.Delete(key, nil)
	if err != nil {
		db.metrics.DeleteFailCounter.Inc()
		return err
	}
	db.metrics.DeleteCounter.Inc()
	return nil
}

// NewIterator wraps LevelDB NewIterator method to increment metrics counter.
func (db *DB) NewIterator() iterator.Iterator {
	db.metrics.IteratorCounter.Inc()
	return db.ldb.NewIterator(nil, nil)
}

// NewPrefixIterator returns an iterator bounded to keys with the
// provided prefix.
func (db *DB) NewPrefixIterator(prefix []byte) iterator.Iterator {
	db.metrics.IteratorCounter.Inc()
	return db.ldb.NewIterator(util.BytesPrefix(prefix), nil)
}

// WriteBatch wraps LevelDB Write method to increment metrics counter.
func (db *DB) WriteBatch(batch *leveldb.Batch) (err error) {
	err = db.ldb.Write(batch, nil)
	if err != nil {
		db.metrics.WriteBatchFailCounter.Inc()
		return err
	}
	db.metrics.WriteBatchCounter.Inc()
	return nil
}

// Close closes LevelDB database.
func (db *DB) Close() (err error) {
	return db.ldb.Close()
}
