// Package syncer maintains the persisted queue of pending mutations and
// drains it to the remote backend when connectivity is available.
//
// Each queued operation retries independently with a bounded budget. A
// pass over the queue is guarded by an explicit idle/running state so a
// second trigger while one pass is in flight is dropped rather than
// interleaved; the queue is revisited on the next trigger.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/redesblock/stash/core/events"
	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
)

const (
	// queueKeyPrefix namespaces queue entries in the state store. The
	// fixed width hexadecimal sequence keeps iteration in insertion
	// order.
	queueKeyPrefix = "syncqueue_"
	// failedCountKey persists the running total of operations dropped
	// after exhausting their retry budget.
	failedCountKey = "syncfailedcount"
)

// DefaultMaxRetries is the retry budget for operations queued without
// an explicit one.
const DefaultMaxRetries = 3

// State of the queue processor.
type State uint32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return "unknown"
}

// now is the queue time source, a variable for test control.
var now = func() time.Time { return time.Now().UTC() }

// RecordSyncer is the slice of the local store the syncer needs to
// acknowledge transmitted records.
type RecordSyncer interface {
	SetSynced(ctx context.Context, id string) (bool, error)
}

// LastSyncRecorder persists the completion time of successful passes.
type LastSyncRecorder interface {
	SetLastSync(t time.Time) error
}

// Options to configure the Syncer at construction.
type Options struct {
	// MaxRetries is the default retry budget for queued operations.
	MaxRetries int
	// PriorityOrdering drains higher priority operations first.
	PriorityOrdering bool
	// Online is the initial connectivity assumption.
	Online bool
}

// Syncer owns the persisted sync queue and the processor draining it.
type Syncer struct {
	store      storage.StateStorer
	records    RecordSyncer
	transport  Transport
	bus        *events.Bus
	lastSync   LastSyncRecorder
	metrics    metrics
	logger     logging.Logger
	maxRetries int

	// state is the processor re-entrancy guard, transitioned only with
	// atomic compare and swap at pass entry and exit.
	state uint32

	mtx              sync.Mutex
	seq              uint64
	online           bool
	priorityOrdering bool
	failedCount      uint64
}

// New loads the persisted queue tail and failure counter and returns a
// ready Syncer. The lastSync recorder may be nil.
func New(store storage.StateStorer, records RecordSyncer, transport Transport, bus *events.Bus, lastSync LastSyncRecorder, o Options, logger logging.Logger) (*Syncer, error) {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	s := &Syncer{
		store:            store,
		records:          records,
		transport:        transport,
		bus:              bus,
		lastSync:         lastSync,
		metrics:          newMetrics(),
		logger:           logger,
		maxRetries:       o.MaxRetries,
		online:           o.Online,
		priorityOrdering: o.PriorityOrdering,
	}

	// recover the next sequence number from the last persisted key
	err := store.Iterate(queueKeyPrefix, func(key, value []byte) (stop bool, err error) {
		seq, err := parseQueueKey(string(key))
		if err != nil {
			return true, err
		}
		if seq >= s.seq {
			s.seq = seq + 1
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("syncer: recover queue: %w", err)
	}

	if err := store.Get(failedCountKey, &s.failedCount); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return s, nil
}

func queueKey(seq uint64) string {
	return fmt.Sprintf("%s%016x", queueKeyPrefix, seq)
}

func parseQueueKey(key string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(key, queueKeyPrefix), 16, 64)
}

// EnqueueOptions are the optional parameters of one queued operation.
type EnqueueOptions struct {
	Priority   storage.Priority
	MaxRetries int
}

// Enqueue appends a mutation to the sync queue and emits sync_queued.
// The operation is durable before Enqueue returns. Draining the queue
// is the caller's trigger to issue.
func (s *Syncer) Enqueue(ctx context.Context, action storage.Action, targetType string, data json.RawMessage, o *EnqueueOptions) (storage.SyncOperation, error) {
	if !action.Valid() {
		return storage.SyncOperation{}, storage.ErrInvalidAction
	}
	if o == nil {
		o = &EnqueueOptions{Priority: storage.PriorityNormal}
	}
	maxRetries := o.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.maxRetries
	}

	s.mtx.Lock()
	op := storage.SyncOperation{
		ID:         uuid.New().String(),
		Seq:        s.seq,
		Action:     action,
		TargetType: targetType,
		Data:       data,
		Timestamp:  now(),
		MaxRetries: maxRetries,
		Priority:   o.Priority,
	}
	s.seq++
	s.mtx.Unlock()

	if err := s.store.Put(queueKey(op.Seq), op); err != nil {
		return storage.SyncOperation{}, &storage.StorageError{Op: "enqueue", Err: err}
	}
	s.metrics.QueuedCounter.Inc()
	s.bus.Emit(events.SyncQueued{Op: op})
	return op, nil
}

// Process drains the queue once, one operation at a time. If a pass is
// already running or the device is offline it returns immediately
// without touching the queue. It returns the number of operations
// transmitted successfully.
func (s *Syncer) Process(ctx context.Context) (int, error) {
	if !s.Online() {
		return 0, nil
	}
	if !atomic.CompareAndSwapUint32(&s.state, uint32(StateIdle), uint32(StateRunning)) {
		s.metrics.DroppedTriggerCounter.Inc()
		return 0, nil
	}
	defer atomic.StoreUint32(&s.state, uint32(StateIdle))

	s.metrics.PassCounter.Inc()

	ops, err := s.Pending()
	if err != nil {
		return 0, err
	}

	var completed int
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		ok, err := s.processOne(ctx, op)
		if err != nil {
			return completed, err
		}
		if ok {
			completed++
		}
	}

	if completed > 0 && s.lastSync != nil {
		if err := s.lastSync.SetLastSync(now()); err != nil {
			s.logger.Warningf("syncer: record last sync time: %v", err)
		}
	}
	return completed, nil
}

// processOne attempts one transmission. A transport failure is consumed
// by the retry bookkeeping; only state store failures propagate.
func (s *Syncer) processOne(ctx context.Context, op storage.SyncOperation) (bool, error) {
	remoteID, err := s.transport.Send(ctx, op)
	if err == nil {
		if err := s.store.Delete(queueKey(op.Seq)); err != nil {
			return false, &storage.StorageError{Op: "dequeue", Err: err}
		}
		s.ackRecord(ctx, op)
		s.metrics.SyncedCounter.Inc()
		s.bus.Emit(events.SyncCompleted{Op: op, RemoteID: remoteID})
		return true, nil
	}

	s.logger.Debugf("syncer: operation %s attempt %d failed: %v", op.ID, op.RetryCount+1, err)
	op.RetryCount++
	if op.RetryCount >= op.MaxRetries {
		if err := s.store.Delete(queueKey(op.Seq)); err != nil {
			return false, &storage.StorageError{Op: "dequeue", Err: err}
		}
		s.incFailedCount()
		s.metrics.PermanentFailCounter.Inc()
		s.logger.Errorf("syncer: operation %s dropped after %d attempts: %v", op.ID, op.RetryCount, err)
		s.bus.Emit(events.SyncFailedPermanently{Op: op, Err: err})
		return false, nil
	}
	if err := s.store.Put(queueKey(op.Seq), op); err != nil {
		return false, &storage.StorageError{Op: "requeue", Err: err}
	}
	s.metrics.RetryCounter.Inc()
	s.bus.Emit(events.SyncRetryScheduled{Op: op, Err: err})
	return false, nil
}

// ackRecord marks the local record carried by the payload as
// acknowledged. Deletes have nothing left to acknowledge.
func (s *Syncer) ackRecord(ctx context.Context, op storage.SyncOperation) {
	if op.Action == storage.ActionDelete || s.records == nil {
		return
	}
	id := payloadID(op.Data)
	if id == "" {
		return
	}
	updated, err := s.records.SetSynced(ctx, id)
	if err != nil {
		s.logger.Warningf("syncer: mark record %s synced: %v", id, err)
		return
	}
	if updated {
		s.bus.Emit(events.DataSynced{ID: id})
	}
}

// Pending returns the queued operations in transmission order:
// insertion order, or priority descending with insertion order as the
// tie break when priority ordering is enabled.
func (s *Syncer) Pending() ([]storage.SyncOperation, error) {
	var ops []storage.SyncOperation
	err := s.store.Iterate(queueKeyPrefix, func(key, value []byte) (stop bool, err error) {
		var op storage.SyncOperation
		if err := json.Unmarshal(value, &op); err != nil {
			return true, err
		}
		ops = append(ops, op)
		return false, nil
	})
	if err != nil {
		return nil, &storage.StorageError{Op: "load queue", Err: err}
	}
	if s.PriorityOrdering() {
		sort.SliceStable(ops, func(i, j int) bool {
			return ops[i].Priority > ops[j].Priority
		})
	}
	return ops, nil
}

// QueueSize returns the number of queued operations.
func (s *Syncer) QueueSize() (int, error) {
	var n int
	err := s.store.Iterate(queueKeyPrefix, func(key, value []byte) (stop bool, err error) {
		n++
		return false, nil
	})
	if err != nil {
		return 0, &storage.StorageError{Op: "count queue", Err: err}
	}
	return n, nil
}

// FailedCount returns the number of operations dropped after retry
// exhaustion since the counter was last reset.
func (s *Syncer) FailedCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return int(s.failedCount)
}

func (s *Syncer) incFailedCount() {
	s.mtx.Lock()
	s.failedCount++
	n := s.failedCount
	s.mtx.Unlock()
	if err := s.store.Put(failedCountKey, n); err != nil {
		s.logger.Warningf("syncer: persist failure counter: %v", err)
	}
}

// ClearQueue drops all queued operations and resets the failure
// counter. It returns the number of dropped operations.
func (s *Syncer) ClearQueue(ctx context.Context) (int, error) {
	var keys []string
	err := s.store.Iterate(queueKeyPrefix, func(key, value []byte) (stop bool, err error) {
		keys = append(keys, string(key))
		return false, nil
	})
	if err != nil {
		return 0, &storage.StorageError{Op: "clear queue", Err: err}
	}
	for _, key := range keys {
		if err := s.store.Delete(key); err != nil {
			return 0, &storage.StorageError{Op: "clear queue", Err: err}
		}
	}
	s.mtx.Lock()
	s.seq = 0
	s.failedCount = 0
	s.mtx.Unlock()
	if err := s.store.Put(failedCountKey, uint64(0)); err != nil {
		return 0, &storage.StorageError{Op: "clear queue", Err: err}
	}
	return len(keys), nil
}

// ImportOps replaces the queue with the given operations, preserving
// their relative order. Used by backup restore.
func (s *Syncer) ImportOps(ctx context.Context, ops []storage.SyncOperation) error {
	if _, err := s.ClearQueue(ctx); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range ops {
		op := ops[i]
		op.Seq = s.seq
		if err := s.store.Put(queueKey(op.Seq), op); err != nil {
			return &storage.StorageError{Op: "import queue", Err: err}
		}
		s.seq++
	}
	return nil
}

// SetOnline updates the connectivity assumption. Triggering a pass on
// reconnect is the caller's decision.
func (s *Syncer) SetOnline(online bool) {
	s.mtx.Lock()
	s.online = online
	s.mtx.Unlock()
}

// Online reports the current connectivity assumption.
func (s *Syncer) Online() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.online
}

// SetPriorityOrdering toggles priority based drain order for subsequent
// passes.
func (s *Syncer) SetPriorityOrdering(enabled bool) {
	s.mtx.Lock()
	s.priorityOrdering = enabled
	s.mtx.Unlock()
}

// PriorityOrdering reports whether passes drain by priority.
func (s *Syncer) PriorityOrdering() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.priorityOrdering
}

// State returns the current processor state.
func (s *Syncer) State() State {
	return State(atomic.LoadUint32(&s.state))
}
