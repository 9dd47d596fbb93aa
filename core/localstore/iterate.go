package localstore

import (
	"context"

	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// Counts returns the number of live records and how many of them are
// synced. Expired records are not counted.
func (db *DB) Counts(ctx context.Context) (total, synced int, err error) {
	ts := now()
	err = db.retrievalDataIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		if item.ExpiresAt != 0 && item.ExpiresAt <= ts {
			return false, nil
		}
		total++
		if item.Synced {
			synced++
		}
		return false, nil
	}, nil)
	if err != nil {
		return 0, 0, &storage.StorageError{Op: "counts", Err: err}
	}
	return total, synced, nil
}

// Iterate calls fn for a copy of every live record in id order,
// payloads decoded. It is used by the backup exporter.
func (db *DB) Iterate(ctx context.Context, fn func(storage.Record) (stop bool, err error)) error {
	ts := now()
	err := db.retrievalDataIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		if item.ExpiresAt != 0 && item.ExpiresAt <= ts {
			return false, nil
		}
		r, err := db.itemToRecord(item)
		if err != nil {
			// skip undecodable records, the next read will remove them
			db.logger.Warningf("localstore: skipping undecodable record %q during iteration: %v", string(item.ID), err)
			return false, nil
		}
		return fn(r)
	}, nil)
	if err != nil {
		return &storage.StorageError{Op: "iterate", Err: err}
	}
	return nil
}
