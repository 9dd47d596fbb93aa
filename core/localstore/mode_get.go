package localstore

import (
	"context"
	"errors"

	"github.com/redesblock/stash/core/codec"
	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// Get returns a copy of the stored record. If the record is not found
// storage.ErrNotFound is returned. A record whose expiry deadline has
// passed is deleted on encounter and reported as not found. A record
// whose payload can no longer be decoded is treated the same way: it
// is removed so it can never block subsequent reads.
func (db *DB) Get(ctx context.Context, id string) (storage.Record, error) {
	db.metrics.GetCounter.Inc()

	item, err := db.getItem(id)
	if err != nil {
		if errors.Is(err, shed.ErrNotFound) {
			db.metrics.GetNotFoundCounter.Inc()
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, &storage.StorageError{Op: "get", Err: err}
	}

	if item.ExpiresAt != 0 && item.ExpiresAt <= now() {
		db.metrics.ExpiredCounter.Inc()
		if err := db.removeItem(item); err != nil {
			return storage.Record{}, &storage.StorageError{Op: "expire", Err: err}
		}
		return storage.Record{}, storage.ErrNotFound
	}

	r, err := db.itemToRecord(item)
	if err != nil {
		if errors.Is(err, codec.ErrDecode) {
			// poisoned record, drop it instead of surfacing a crash
			db.metrics.CorruptCounter.Inc()
			db.logger.Warningf("localstore: removing undecodable record %q: %v", id, err)
			if err := db.removeItem(item); err != nil {
				return storage.Record{}, &storage.StorageError{Op: "remove corrupt", Err: err}
			}
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, err
	}
	return r, nil
}

// Has reports whether a live record with the given id exists.
func (db *DB) Has(ctx context.Context, id string) (bool, error) {
	item, err := db.getItem(id)
	if err != nil {
		if errors.Is(err, shed.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if item.ExpiresAt != 0 && item.ExpiresAt <= now() {
		return false, nil
	}
	return true, nil
}

// GetByCategory returns copies of all live records in a category,
// ordered newest first. Expired records encountered during iteration
// are removed.
func (db *DB) GetByCategory(ctx context.Context, category string) ([]storage.Record, error) {
	db.metrics.GetByCategoryCounter.Inc()

	var (
		records []storage.Record
		expired []shed.Item
		ts      = now()
	)
	prefix := append([]byte(category), categorySeparator)
	err := db.categoryIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		full, err := db.retrievalDataIndex.Get(shed.Item{ID: item.ID})
		if err != nil {
			if errors.Is(err, shed.ErrNotFound) {
				// dangling category entry, collect for removal
				expired = append(expired, item.Merge(full))
				return false, nil
			}
			return true, err
		}
		if full.ExpiresAt != 0 && full.ExpiresAt <= ts {
			expired = append(expired, full)
			return false, nil
		}
		r, err := db.itemToRecord(full)
		if err != nil {
			if errors.Is(err, codec.ErrDecode) {
				db.metrics.CorruptCounter.Inc()
				expired = append(expired, full)
				return false, nil
			}
			return true, err
		}
		records = append(records, r)
		return false, nil
	}, &shed.IterateOptions{Prefix: prefix})
	if err != nil {
		return nil, &storage.StorageError{Op: "get by category", Err: err}
	}

	for _, item := range expired {
		db.metrics.ExpiredCounter.Inc()
		if err := db.removeItem(item); err != nil {
			return nil, &storage.StorageError{Op: "expire", Err: err}
		}
	}
	return records, nil
}

// getItem reads the full retrieval index item, using the read cache
// when possible.
func (db *DB) getItem(id string) (shed.Item, error) {
	if v, ok := db.cache.Get(id); ok {
		return v.(shed.Item), nil
	}
	item, err := db.retrievalDataIndex.Get(shed.Item{ID: []byte(id)})
	if err != nil {
		return shed.Item{}, err
	}
	db.cache.Add(id, item)
	return item, nil
}
