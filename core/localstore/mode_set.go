package localstore

import (
	"context"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// Delete removes the record with the given id. It is idempotent: the
// returned boolean reports whether a record actually existed.
func (db *DB) Delete(ctx context.Context, id string) (bool, error) {
	db.metrics.DeleteCounter.Inc()

	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	item, err := db.retrievalDataIndex.Get(shed.Item{ID: []byte(id)})
	if err != nil {
		if errors.Is(err, shed.ErrNotFound) {
			return false, nil
		}
		return false, &storage.StorageError{Op: "delete", Err: err}
	}

	batch := new(leveldb.Batch)
	if err := db.setRemove(batch, item); err != nil {
		return false, &storage.StorageError{Op: "delete", Err: err}
	}
	if err := db.incGCSizeInBatch(batch, -item.Size); err != nil {
		return false, &storage.StorageError{Op: "delete", Err: err}
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return false, &storage.StorageError{Op: "delete", Err: err}
	}
	db.cache.Remove(id)
	return true, nil
}

// SetSynced marks the record as acknowledged by the remote backend and
// bumps its update timestamp. Absent ids are a no-op; the returned
// boolean reports whether a record was updated.
func (db *DB) SetSynced(ctx context.Context, id string) (bool, error) {
	db.metrics.SetSyncedCounter.Inc()

	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	item, err := db.retrievalDataIndex.Get(shed.Item{ID: []byte(id)})
	if err != nil {
		if errors.Is(err, shed.ErrNotFound) {
			return false, nil
		}
		return false, &storage.StorageError{Op: "set synced", Err: err}
	}

	batch := new(leveldb.Batch)
	// the category and gc keys both embed fields that change here, so
	// the previous entries have to go
	if err := db.categoryIndex.DeleteInBatch(batch, item); err != nil {
		return false, err
	}
	if err := db.gcIndex.DeleteInBatch(batch, item); err != nil {
		return false, err
	}

	item.Synced = true
	item.UpdatedAt = now()

	if err := db.retrievalDataIndex.PutInBatch(batch, item); err != nil {
		return false, err
	}
	if err := db.categoryIndex.PutInBatch(batch, item); err != nil {
		return false, err
	}
	if err := db.gcIndex.PutInBatch(batch, item); err != nil {
		return false, err
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return false, &storage.StorageError{Op: "set synced", Err: err}
	}
	db.cache.Remove(id)
	return true, nil
}

// Clear removes all records and resets the size accounting. It returns
// the number of removed records.
func (db *DB) Clear(ctx context.Context) (int, error) {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	var (
		batch = new(leveldb.Batch)
		count int
	)
	err := db.retrievalDataIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		if err := db.setRemove(batch, item); err != nil {
			return true, err
		}
		count++
		return false, nil
	}, nil)
	if err != nil {
		return 0, &storage.StorageError{Op: "clear", Err: err}
	}
	db.gcSize.PutInBatch(batch, 0)
	if err := db.shed.WriteBatch(batch); err != nil {
		return 0, &storage.StorageError{Op: "clear", Err: err}
	}
	db.cache.Purge()
	return count, nil
}

// setRemove adds the removal of all index entries of one record to the
// provided batch. Size accounting is left to the caller.
func (db *DB) setRemove(batch *leveldb.Batch, item shed.Item) error {
	if err := db.retrievalDataIndex.DeleteInBatch(batch, item); err != nil {
		return err
	}
	if err := db.categoryIndex.DeleteInBatch(batch, item); err != nil {
		return err
	}
	if err := db.gcIndex.DeleteInBatch(batch, item); err != nil {
		return err
	}
	if item.ExpiresAt != 0 {
		if err := db.expirationIndex.DeleteInBatch(batch, item); err != nil {
			return err
		}
	}
	return nil
}

// removeItem removes one record with its own write batch, adjusting
// the size accounting.
func (db *DB) removeItem(item shed.Item) error {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	batch := new(leveldb.Batch)
	if err := db.setRemove(batch, item); err != nil {
		return err
	}
	if err := db.incGCSizeInBatch(batch, -item.Size); err != nil {
		return err
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return err
	}
	db.cache.Remove(string(item.ID))
	return nil
}
