package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// gcTargetRatio is the percentage of the capacity that eviction shrinks
// the store to. Stopping below the threshold leaves headroom so that
// writes right at the limit do not trigger eviction on every call.
const gcTargetRatio = 80

// gcBatchSize limits how many records are collected in a single
// eviction write batch.
const gcBatchSize = 200

// Evict removes records while the total size exceeds the configured
// capacity, in gc index order: synced records first, then lower
// priority, then older. It stops once the size drops to the gc target.
// It returns the number of evicted records.
func (db *DB) Evict(ctx context.Context) (collected int, err error) {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	if db.capacity <= 0 {
		return 0, nil
	}
	size, err := db.gcSize.Get()
	if err != nil {
		return 0, &storage.StorageError{Op: "evict", Err: err}
	}
	if int64(size) <= db.capacity {
		return 0, nil
	}
	db.metrics.GCCounter.Inc()
	target := uint64(db.capacity * gcTargetRatio / 100)

	// eviction runs in bounded batches so that a single oversized pass
	// does not hold one huge write batch in memory
	for size > target {
		var inBatch int
		batch := new(leveldb.Batch)
		err = db.gcIndex.Iterate(func(item shed.Item) (stop bool, err error) {
			if size <= target || inBatch >= gcBatchSize {
				return true, nil
			}
			full, err := db.retrievalDataIndex.Get(shed.Item{ID: item.ID})
			if err != nil {
				if errors.Is(err, shed.ErrNotFound) {
					// dangling gc entry
					return false, db.gcIndex.DeleteInBatch(batch, item)
				}
				return true, err
			}
			if err := db.setRemove(batch, full); err != nil {
				return true, err
			}
			if uint64(full.Size) > size {
				size = 0
			} else {
				size -= uint64(full.Size)
			}
			inBatch++
			return false, nil
		}, nil)
		if err != nil {
			db.metrics.GCErrorCounter.Inc()
			return 0, &storage.StorageError{Op: "evict", Err: err}
		}

		db.gcSize.PutInBatch(batch, size)
		if err := db.shed.WriteBatch(batch); err != nil {
			db.metrics.GCErrorCounter.Inc()
			return 0, &storage.StorageError{Op: "evict", Err: err}
		}
		collected += inBatch
		if inBatch == 0 {
			// nothing left to evict
			break
		}
	}
	db.cache.Purge()
	db.metrics.GCCollectedCounter.Add(float64(collected))

	if testHookCollectGarbage != nil {
		testHookCollectGarbage(collected)
	}
	return collected, nil
}

// ExpireRecords eagerly removes all records whose expiry deadline has
// passed. It returns the number of removed records.
func (db *DB) ExpireRecords(ctx context.Context) (count int, err error) {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	var (
		batch      = new(leveldb.Batch)
		ts         = now()
		sizeChange int64
	)
	err = db.expirationIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		if item.ExpiresAt > ts {
			// deadlines are iterated in ascending order, the rest are
			// still live
			return true, nil
		}
		full, err := db.retrievalDataIndex.Get(shed.Item{ID: item.ID})
		if err != nil {
			if errors.Is(err, shed.ErrNotFound) {
				return false, db.expirationIndex.DeleteInBatch(batch, item)
			}
			return true, err
		}
		if err := db.setRemove(batch, full); err != nil {
			return true, err
		}
		sizeChange -= full.Size
		count++
		return false, nil
	}, nil)
	if err != nil {
		return 0, &storage.StorageError{Op: "expire", Err: err}
	}
	if err := db.incGCSizeInBatch(batch, sizeChange); err != nil {
		return 0, &storage.StorageError{Op: "expire", Err: err}
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return 0, &storage.StorageError{Op: "expire", Err: err}
	}
	if count > 0 {
		db.cache.Purge()
	}
	db.metrics.ExpiredCounter.Add(float64(count))
	return count, nil
}

// SweepAged removes records whose last update is older than the cutoff
// and which are either synced or low priority. Unsynced records of
// normal or high priority survive age based cleanup: dropping them
// would silently lose a pending mutation, and only retry exhaustion in
// the sync processor is allowed to do that.
func (db *DB) SweepAged(ctx context.Context, cutoff time.Time) (count int, err error) {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()

	var (
		batch      = new(leveldb.Batch)
		cutoffTS   = cutoff.UnixNano()
		sizeChange int64
	)
	err = db.retrievalDataIndex.Iterate(func(item shed.Item) (stop bool, err error) {
		if item.UpdatedAt >= cutoffTS {
			return false, nil
		}
		if !item.Synced && item.Priority != uint8(storage.PriorityLow) {
			return false, nil
		}
		if err := db.setRemove(batch, item); err != nil {
			return true, err
		}
		sizeChange -= item.Size
		count++
		return false, nil
	}, nil)
	if err != nil {
		return 0, &storage.StorageError{Op: "sweep", Err: err}
	}
	if err := db.incGCSizeInBatch(batch, sizeChange); err != nil {
		return 0, &storage.StorageError{Op: "sweep", Err: err}
	}
	if err := db.shed.WriteBatch(batch); err != nil {
		return 0, &storage.StorageError{Op: "sweep", Err: err}
	}
	if count > 0 {
		db.cache.Purge()
	}
	db.metrics.SweptCounter.Add(float64(count))
	return count, nil
}

// incGCSizeInBatch adds the size change to the persisted total inside
// the provided batch.
func (db *DB) incGCSizeInBatch(batch *leveldb.Batch, change int64) error {
	if change == 0 {
		return nil
	}
	size, err := db.gcSize.Get()
	if err != nil {
		return err
	}
	var newSize uint64
	if change > 0 {
		newSize = size + uint64(change)
	} else {
		dec := uint64(-change)
		if dec > size {
			// never underflow the total
			newSize = 0
		} else {
			newSize = size - dec
		}
	}
	db.gcSize.PutInBatch(batch, newSize)
	return nil
}

// testHookCollectGarbage is a hook that provides the number of evicted
// records when an eviction pass completes.
var testHookCollectGarbage func(collected int)
