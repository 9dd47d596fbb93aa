// Package events provides the in-process publish/subscribe channel that
// reports engine lifecycle transitions to interested observers.
//
// The topic set is closed: every topic has exactly one payload type, so
// a topic/payload mismatch is a compile error, not a runtime surprise.
// Emission is synchronous and fire-and-forget. A handler that panics
// must not prevent delivery to the remaining handlers or unwind the
// emitting operation.
package events

import (
	"sort"
	"sync"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
)

// Topic names one kind of engine lifecycle event.
type Topic string

const (
	TopicInitialized           Topic = "initialized"
	TopicInitializationFailed  Topic = "initialization_failed"
	TopicDataStored            Topic = "data_stored"
	TopicDataDeleted           Topic = "data_deleted"
	TopicDataSynced            Topic = "data_synced"
	TopicSyncQueued            Topic = "sync_queued"
	TopicSyncCompleted         Topic = "sync_completed"
	TopicSyncRetryScheduled    Topic = "sync_retry_scheduled"
	TopicSyncFailedPermanently Topic = "sync_failed_permanently"
	TopicCleanupCompleted      Topic = "cleanup_completed"
	TopicSettingsUpdated       Topic = "settings_updated"
	TopicDataImported          Topic = "data_imported"
	TopicDataCleared           Topic = "data_cleared"
)

// Event is one lifecycle notification. Each implementation maps to
// exactly one topic.
type Event interface {
	Topic() Topic
}

// Initialized is emitted once the engine store is opened and migrated.
type Initialized struct {
	SchemaVersion string
}

func (Initialized) Topic() Topic { return TopicInitialized }

// InitializationFailed is emitted when the store cannot be opened. The
// engine is unusable afterwards and all calls fail fast.
type InitializationFailed struct {
	Err error
}

func (InitializationFailed) Topic() Topic { return TopicInitializationFailed }

// DataStored is emitted after a record write is persisted.
type DataStored struct {
	Record storage.Record
}

func (DataStored) Topic() Topic { return TopicDataStored }

// DataDeleted is emitted when an existing record is explicitly deleted.
type DataDeleted struct {
	ID string
}

func (DataDeleted) Topic() Topic { return TopicDataDeleted }

// DataSynced is emitted when a record is acknowledged by the remote.
type DataSynced struct {
	ID string
}

func (DataSynced) Topic() Topic { return TopicDataSynced }

// SyncQueued is emitted when a mutation is appended to the sync queue.
type SyncQueued struct {
	Op storage.SyncOperation
}

func (SyncQueued) Topic() Topic { return TopicSyncQueued }

// SyncCompleted is emitted when a queued operation is transmitted
// successfully and removed from the queue.
type SyncCompleted struct {
	Op       storage.SyncOperation
	RemoteID string
}

func (SyncCompleted) Topic() Topic { return TopicSyncCompleted }

// SyncRetryScheduled is emitted when a sync attempt fails with retry
// budget remaining.
type SyncRetryScheduled struct {
	Op  storage.SyncOperation
	Err error
}

func (SyncRetryScheduled) Topic() Topic { return TopicSyncRetryScheduled }

// SyncFailedPermanently is emitted exactly once per operation, when the
// retry budget is exhausted and the operation is dropped.
type SyncFailedPermanently struct {
	Op  storage.SyncOperation
	Err error
}

func (SyncFailedPermanently) Topic() Topic { return TopicSyncFailedPermanently }

// CleanupCompleted is emitted at the end of every cleanup pass.
type CleanupCompleted struct {
	Expired int
	Swept   int
	Evicted int
}

func (CleanupCompleted) Topic() Topic { return TopicCleanupCompleted }

// SettingsUpdated is emitted after a settings change is persisted.
type SettingsUpdated struct {
	Settings storage.Settings
}

func (SettingsUpdated) Topic() Topic { return TopicSettingsUpdated }

// DataImported is emitted after a backup import replaced all state.
type DataImported struct {
	Records    int
	Operations int
}

func (DataImported) Topic() Topic { return TopicDataImported }

// DataCleared is emitted after clearAll removed all state.
type DataCleared struct{}

func (DataCleared) Topic() Topic { return TopicDataCleared }

// Handler observes events of one topic.
type Handler func(Event)

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	topic Topic
	id    uint64
}

// Bus is the in-process publish/subscribe dispatcher.
type Bus struct {
	mtx    sync.Mutex
	nextID uint64
	subs   map[Topic]map[uint64]Handler
	logger logging.Logger
}

// NewBus returns a new event Bus.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		subs:   make(map[Topic]map[uint64]Handler),
		logger: logger,
	}
}

// On registers a handler for a topic and returns its subscription.
func (b *Bus) On(topic Topic, h Handler) *Subscription {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][b.nextID] = h
	return &Subscription{topic: topic, id: b.nextID}
}

// Off removes a previously registered handler. Removing a subscription
// twice is a no-op.
func (b *Bus) Off(s *Subscription) {
	if s == nil {
		return
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if hs, ok := b.subs[s.topic]; ok {
		delete(hs, s.id)
	}
}

// Emit synchronously delivers the event to all handlers registered for
// its topic, in registration order.
func (b *Bus) Emit(e Event) {
	b.mtx.Lock()
	hs := b.subs[e.Topic()]
	ids := make([]uint64, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	// subscription ids are monotonic, sorting them restores registration order
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, hs[id])
	}
	b.mtx.Unlock()

	for _, h := range handlers {
		b.call(e, h)
	}
}

func (b *Bus) call(e Event, h Handler) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Errorf("events: handler for topic %s panicked: %v", e.Topic(), p)
		}
	}()
	h(e)
}
