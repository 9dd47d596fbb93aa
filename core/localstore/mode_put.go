package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// Put writes the record to the store, overwriting any record with the
// same id. The payload is transformed by the codec when compression is
// enabled. The write resets the synced flag: a new local mutation has
// by definition not been acknowledged by the remote.
// If the write pushes the total size over the configured budget the
// eviction routine runs before Put returns.
func (db *DB) Put(ctx context.Context, r storage.Record) (storage.Record, error) {
	db.metrics.PutCounter.Inc()
	if r.ID == "" {
		return storage.Record{}, ErrInvalidID
	}

	stored, err := db.put(r)
	if err != nil {
		db.metrics.PutFailCounter.Inc()
		return storage.Record{}, &storage.StorageError{Op: "put", Err: err}
	}

	if _, err := db.Evict(ctx); err != nil {
		return storage.Record{}, err
	}
	return stored, nil
}

// Restore writes the record with its persisted timestamps, synced flag
// and priority intact. It is used by backup import, where a plain Put
// would wrongly reset the sync state of already acknowledged records.
func (db *DB) Restore(ctx context.Context, r storage.Record) error {
	if r.ID == "" {
		return ErrInvalidID
	}

	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	batch := new(leveldb.Batch)

	existing, err := db.retrievalDataIndex.Get(shed.Item{ID: []byte(r.ID)})
	found := err == nil
	if err != nil && !errors.Is(err, shed.ErrNotFound) {
		return &storage.StorageError{Op: "restore", Err: err}
	}

	data := r.Data
	compressed := false
	if db.compression {
		enc, err := db.codec.Encode(r.Data)
		if err != nil {
			return &storage.StorageError{Op: "restore", Err: err}
		}
		data = enc
		compressed = true
	}

	item := shed.Item{
		ID:         []byte(r.ID),
		Category:   []byte(r.Category),
		Data:       data,
		CreatedAt:  r.CreatedAt.UnixNano(),
		UpdatedAt:  r.UpdatedAt.UnixNano(),
		Synced:     r.Synced,
		Compressed: compressed,
		Priority:   uint8(r.Priority),
		Version:    r.Version,
	}
	if !r.ExpiresAt.IsZero() {
		item.ExpiresAt = r.ExpiresAt.UnixNano()
	}
	item.Size = db.sizeOf(item)

	var sizeChange int64 = item.Size
	if found {
		if err := db.setRemove(batch, existing); err != nil {
			return &storage.StorageError{Op: "restore", Err: err}
		}
		sizeChange -= existing.Size
	}

	if err := db.retrievalDataIndex.PutInBatch(batch, item); err != nil {
		return &storage.StorageError{Op: "restore", Err: err}
	}
	if err := db.categoryIndex.PutInBatch(batch, item); err != nil {
		return &storage.StorageError{Op: "restore", Err: err}
	}
	if err := db.gcIndex.PutInBatch(batch, item); err != nil {
		return &storage.StorageError{Op: "restore", Err: err}
	}
	if item.ExpiresAt != 0 {
		if err := db.expirationIndex.PutInBatch(batch, item); err != nil {
			return &storage.StorageError{Op: "restore", Err: err}
		}
	}
	if err := db.incGCSizeInBatch(batch, sizeChange); err != nil {
		return &storage.StorageError{Op: "restore", Err: err}
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return &storage.StorageError{Op: "restore", Err: err}
	}
	db.cache.Remove(r.ID)
	return nil
}

func (db *DB) put(r storage.Record) (storage.Record, error) {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	batch := new(leveldb.Batch)

	existing, err := db.retrievalDataIndex.Get(shed.Item{ID: []byte(r.ID)})
	found := err == nil
	if err != nil && !errors.Is(err, shed.ErrNotFound) {
		return storage.Record{}, err
	}

	data := r.Data
	compressed := false
	if db.compression {
		enc, err := db.codec.Encode(r.Data)
		if err != nil {
			return storage.Record{}, err
		}
		data = enc
		compressed = true
	}

	ts := now()
	item := shed.Item{
		ID:         []byte(r.ID),
		Category:   []byte(r.Category),
		Data:       data,
		CreatedAt:  ts,
		UpdatedAt:  ts,
		Synced:     false,
		Compressed: compressed,
		Priority:   uint8(r.Priority),
		Version:    r.Version,
	}
	if !r.ExpiresAt.IsZero() {
		item.ExpiresAt = r.ExpiresAt.UnixNano()
	}
	item.Size = db.sizeOf(item)

	var sizeChange int64 = item.Size
	if found {
		// remove secondary entries pointing at the previous revision
		if err := db.categoryIndex.DeleteInBatch(batch, existing); err != nil {
			return storage.Record{}, err
		}
		if err := db.gcIndex.DeleteInBatch(batch, existing); err != nil {
			return storage.Record{}, err
		}
		if existing.ExpiresAt != 0 {
			if err := db.expirationIndex.DeleteInBatch(batch, existing); err != nil {
				return storage.Record{}, err
			}
		}
		item.CreatedAt = existing.CreatedAt
		sizeChange -= existing.Size
	}

	if err := db.retrievalDataIndex.PutInBatch(batch, item); err != nil {
		return storage.Record{}, err
	}
	if err := db.categoryIndex.PutInBatch(batch, item); err != nil {
		return storage.Record{}, err
	}
	if err := db.gcIndex.PutInBatch(batch, item); err != nil {
		return storage.Record{}, err
	}
	if item.ExpiresAt != 0 {
		if err := db.expirationIndex.PutInBatch(batch, item); err != nil {
			return storage.Record{}, err
		}
	}
	if err := db.incGCSizeInBatch(batch, sizeChange); err != nil {
		return storage.Record{}, err
	}

	if err := db.shed.WriteBatch(batch); err != nil {
		return storage.Record{}, err
	}
	db.cache.Remove(r.ID)

	stored := storage.Record{
		ID:        r.ID,
		Category:  r.Category,
		Data:      append([]byte(nil), r.Data...),
		CreatedAt: time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, item.UpdatedAt).UTC(),
		Priority:  storage.Priority(item.Priority),
		Version:   item.Version,
	}
	if item.ExpiresAt != 0 {
		stored.ExpiresAt = time.Unix(0, item.ExpiresAt).UTC()
	}
	return stored, nil
}
