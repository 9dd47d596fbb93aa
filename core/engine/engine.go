// Package engine composes the local record store, the sync queue and
// the maintenance scheduler behind the single facade the application
// layer talks to. All lifecycle transitions are reported on the event
// bus; a handler observes every state change that is not also a
// returned error.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/redesblock/stash/core/cleaner"
	"github.com/redesblock/stash/core/events"
	"github.com/redesblock/stash/core/localstore"
	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/settings"
	statestore "github.com/redesblock/stash/core/statestore/leveldb"
	"github.com/redesblock/stash/core/storage"
	"github.com/redesblock/stash/core/syncer"
)

// ErrClosed is returned by all calls after Close.
var ErrClosed = errors.New("engine: closed")

// Options to configure the engine at construction.
type Options struct {
	// DataDir is the directory holding both databases.
	DataDir string
	// Transport delivers queued operations to the remote backend.
	Transport syncer.Transport
	// Bus receives all lifecycle events. A nil bus is created
	// internally; pass one to observe the initialization events.
	Bus *events.Bus
	// CleanupInterval is the pause between scheduled maintenance
	// passes. Zero means cleaner.DefaultInterval.
	CleanupInterval time.Duration
	// Online is the initial connectivity assumption.
	Online bool
	// MaxRetries is the default retry budget for queued operations.
	MaxRetries int
}

// Engine is the offline-first store and sync facade.
type Engine struct {
	logger   logging.Logger
	bus      *events.Bus
	store    *localstore.DB
	state    storage.StateStorer
	settings *settings.Service
	syncer   *syncer.Syncer
	cleaner  *cleaner.Cleaner

	quit chan struct{}
}

// New opens the databases, loads the singletons and starts the
// maintenance worker. An open or migration failure is emitted as
// initialization_failed on the bus and returned; the engine is not
// usable afterwards.
func New(o Options, logger logging.Logger) (*Engine, error) {
	bus := o.Bus
	if bus == nil {
		bus = events.NewBus(logger)
	}

	e, err := open(o, bus, logger)
	if err != nil {
		bus.Emit(events.InitializationFailed{Err: err})
		return nil, err
	}
	bus.Emit(events.Initialized{SchemaVersion: e.settings.Metadata().SchemaVersion})
	return e, nil
}

func open(o Options, bus *events.Bus, logger logging.Logger) (*Engine, error) {
	stateDB, err := statestore.NewStateStore(filepath.Join(o.DataDir, "statestore"), logger)
	if err != nil {
		return nil, err
	}

	svc, err := settings.New(stateDB, logger)
	if err != nil {
		stateDB.Close()
		return nil, err
	}
	s := svc.Settings()

	store, err := localstore.New(filepath.Join(o.DataDir, "localstore"), &localstore.Options{
		Capacity:    s.MaxCacheSize,
		Compression: s.CompressionEnabled,
	}, logger)
	if err != nil {
		stateDB.Close()
		return nil, err
	}

	sync, err := syncer.New(stateDB, store, o.Transport, bus, svc, syncer.Options{
		MaxRetries:       o.MaxRetries,
		PriorityOrdering: s.PriorityOrdering,
		Online:           o.Online,
	}, logger)
	if err != nil {
		store.Close()
		stateDB.Close()
		return nil, err
	}

	e := &Engine{
		logger:   logger,
		bus:      bus,
		store:    store,
		state:    stateDB,
		settings: svc,
		syncer:   sync,
		quit:     make(chan struct{}),
	}

	version, err := store.SchemaVersion()
	if err != nil {
		e.closeStores()
		return nil, err
	}
	if err := svc.SetSchemaVersion(version); err != nil {
		e.closeStores()
		return nil, err
	}
	if err := e.recomputeTotalSize(); err != nil {
		e.closeStores()
		return nil, err
	}

	e.cleaner = cleaner.New(o.CleanupInterval, e.cleanupPass, logger)
	return e, nil
}

func (e *Engine) closed() bool {
	select {
	case <-e.quit:
		return true
	default:
		return false
	}
}

// StoreOptions are the optional parameters of one stored record.
type StoreOptions struct {
	Priority  storage.Priority
	ExpiresAt time.Time
	Version   uint64
}

// StoreData persists the record, overwriting any previous revision with
// the same id, and emits data_stored. The write resets the synced flag.
func (e *Engine) StoreData(ctx context.Context, id, category string, data []byte, o *StoreOptions) (storage.Record, error) {
	if e.closed() {
		return storage.Record{}, ErrClosed
	}
	if o == nil {
		o = &StoreOptions{Priority: storage.PriorityNormal}
	}
	r, err := e.store.Put(ctx, storage.Record{
		ID:        id,
		Category:  category,
		Data:      data,
		Priority:  o.Priority,
		ExpiresAt: o.ExpiresAt,
		Version:   o.Version,
	})
	if err != nil {
		return storage.Record{}, err
	}
	if err := e.recomputeTotalSize(); err != nil {
		e.logger.Warningf("engine: total size bookkeeping: %v", err)
	}
	e.bus.Emit(events.DataStored{Record: r})
	return r, nil
}

// GetData returns a copy of the record or storage.ErrNotFound.
func (e *Engine) GetData(ctx context.Context, id string) (storage.Record, error) {
	if e.closed() {
		return storage.Record{}, ErrClosed
	}
	return e.store.Get(ctx, id)
}

// GetDataByType returns all live records of a category, newest first.
func (e *Engine) GetDataByType(ctx context.Context, category string) ([]storage.Record, error) {
	if e.closed() {
		return nil, ErrClosed
	}
	return e.store.GetByCategory(ctx, category)
}

// DeleteData removes the record and emits data_deleted when it existed.
func (e *Engine) DeleteData(ctx context.Context, id string) (bool, error) {
	if e.closed() {
		return false, ErrClosed
	}
	existed, err := e.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if existed {
		if err := e.recomputeTotalSize(); err != nil {
			e.logger.Warningf("engine: total size bookkeeping: %v", err)
		}
		e.bus.Emit(events.DataDeleted{ID: id})
	}
	return existed, nil
}

// MarkAsSynced flags the record as acknowledged by the remote. Absent
// ids are a no-op.
func (e *Engine) MarkAsSynced(ctx context.Context, id string) error {
	if e.closed() {
		return ErrClosed
	}
	updated, err := e.store.SetSynced(ctx, id)
	if err != nil {
		return err
	}
	if updated {
		e.bus.Emit(events.DataSynced{ID: id})
	}
	return nil
}

// QueueSync appends a mutation to the sync queue. When the device is
// online the queue is drained before QueueSync returns.
func (e *Engine) QueueSync(ctx context.Context, action storage.Action, targetType string, data json.RawMessage, o *syncer.EnqueueOptions) error {
	if e.closed() {
		return ErrClosed
	}
	if _, err := e.syncer.Enqueue(ctx, action, targetType, data, o); err != nil {
		return err
	}
	if e.syncer.Online() {
		if _, err := e.syncer.Process(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ProcessSyncQueue drains the sync queue once. Offline or concurrent
// calls return immediately. It returns the number of operations
// transmitted.
func (e *Engine) ProcessSyncQueue(ctx context.Context) (int, error) {
	if e.closed() {
		return 0, ErrClosed
	}
	return e.syncer.Process(ctx)
}

// PendingSync returns the queued operations in transmission order.
func (e *Engine) PendingSync() ([]storage.SyncOperation, error) {
	if e.closed() {
		return nil, ErrClosed
	}
	return e.syncer.Pending()
}

// GetSyncStats returns a snapshot of the synchronization backlog.
func (e *Engine) GetSyncStats(ctx context.Context) (storage.SyncStats, error) {
	if e.closed() {
		return storage.SyncStats{}, ErrClosed
	}
	total, synced, err := e.store.Counts(ctx)
	if err != nil {
		return storage.SyncStats{}, err
	}
	queued, err := e.syncer.QueueSize()
	if err != nil {
		return storage.SyncStats{}, err
	}
	return storage.SyncStats{
		TotalItems:  total,
		SyncedItems: synced,
		PendingSync: total - synced,
		FailedSync:  e.syncer.FailedCount(),
		QueueSize:   queued,
	}, nil
}

// Cleanup runs one maintenance pass: eager expiry, the age sweep with
// the compound condition protecting unsynced work, and eviction. The
// pass ends with cleanup_completed and a sync queue drain.
func (e *Engine) Cleanup(ctx context.Context) error {
	if e.closed() {
		return ErrClosed
	}
	return e.cleanupPass(ctx)
}

func (e *Engine) cleanupPass(ctx context.Context) error {
	expired, err := e.store.ExpireRecords(ctx)
	if err != nil {
		return err
	}

	var swept int
	if maxAge := e.settings.Settings().MaxAgeHours; maxAge > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(maxAge) * time.Hour)
		swept, err = e.store.SweepAged(ctx, cutoff)
		if err != nil {
			return err
		}
	}

	evicted, err := e.store.Evict(ctx)
	if err != nil {
		return err
	}

	if err := e.recomputeTotalSize(); err != nil {
		return err
	}
	e.bus.Emit(events.CleanupCompleted{Expired: expired, Swept: swept, Evicted: evicted})

	// the schedule doubles as the periodic sync trigger
	if _, err := e.syncer.Process(ctx); err != nil {
		e.logger.Errorf("engine: scheduled sync pass: %v", err)
	}
	return nil
}

// TriggerCleanup requests a maintenance pass outside the schedule.
func (e *Engine) TriggerCleanup() {
	if e.closed() {
		return
	}
	e.cleaner.Trigger()
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() storage.Settings {
	return e.settings.Settings()
}

// Metadata returns a copy of the current metadata.
func (e *Engine) Metadata() storage.Metadata {
	return e.settings.Metadata()
}

// UpdateSettings applies the patch, persists the result, propagates the
// changed policies to the running components and emits
// settings_updated. Shrinking the size budget evicts immediately.
func (e *Engine) UpdateSettings(ctx context.Context, p storage.SettingsPatch) (storage.Settings, error) {
	if e.closed() {
		return storage.Settings{}, ErrClosed
	}
	updated, err := e.settings.Update(p)
	if err != nil {
		return storage.Settings{}, err
	}

	e.store.SetCompression(updated.CompressionEnabled)
	e.syncer.SetPriorityOrdering(updated.PriorityOrdering)
	if e.store.Capacity() != updated.MaxCacheSize {
		e.store.SetCapacity(updated.MaxCacheSize)
		if _, err := e.store.Evict(ctx); err != nil {
			return updated, err
		}
		if err := e.recomputeTotalSize(); err != nil {
			return updated, err
		}
	}

	e.bus.Emit(events.SettingsUpdated{Settings: updated})
	return updated, nil
}

// SetOnline updates the connectivity assumption. Coming online drains
// the queue when syncOnReconnect is enabled.
func (e *Engine) SetOnline(ctx context.Context, online bool) error {
	if e.closed() {
		return ErrClosed
	}
	wasOnline := e.syncer.Online()
	e.syncer.SetOnline(online)
	if online && !wasOnline && e.settings.Settings().SyncOnReconnect {
		if _, err := e.syncer.Process(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Online reports the current connectivity assumption.
func (e *Engine) Online() bool {
	return e.syncer.Online()
}

// ClearAll removes every record and queued operation and emits
// data_cleared. Settings survive.
func (e *Engine) ClearAll(ctx context.Context) error {
	if e.closed() {
		return ErrClosed
	}
	if _, err := e.store.Clear(ctx); err != nil {
		return err
	}
	if _, err := e.syncer.ClearQueue(ctx); err != nil {
		return err
	}
	if err := e.recomputeTotalSize(); err != nil {
		return err
	}
	e.bus.Emit(events.DataCleared{})
	return nil
}

// On registers an event handler for a topic.
func (e *Engine) On(topic events.Topic, h events.Handler) *events.Subscription {
	return e.bus.On(topic, h)
}

// Off removes a previously registered handler.
func (e *Engine) Off(s *events.Subscription) {
	e.bus.Off(s)
}

// Bus returns the engine event bus.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Metrics returns the prometheus collectors of all engine components.
func (e *Engine) Metrics() []prometheus.Collector {
	return append(e.store.Metrics(), e.syncer.Metrics()...)
}

func (e *Engine) recomputeTotalSize() error {
	size, err := e.store.Size()
	if err != nil {
		return err
	}
	return e.settings.SetTotalSize(size)
}

// Close stops the maintenance worker and closes both databases. All
// subsequent calls return ErrClosed.
func (e *Engine) Close() error {
	if e.closed() {
		return nil
	}
	close(e.quit)
	if err := e.cleaner.Close(); err != nil {
		return err
	}
	return e.closeStores()
}

func (e *Engine) closeStores() error {
	storeErr := e.store.Close()
	stateErr := e.state.Close()
	if storeErr != nil {
		return storeErr
	}
	return stateErr
}
