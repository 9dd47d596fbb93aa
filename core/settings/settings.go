// Package settings manages the engine's single Settings and Metadata
// instances. Both are loaded from the state store at start and written
// back on every change.
package settings

import (
	"errors"
	"sync"
	"time"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
)

const (
	settingsKey = "settings"
	metadataKey = "metadata"
)

// Default policy values used when no settings were persisted yet.
const (
	DefaultMaxCacheSize = 50 * 1024 * 1024
	DefaultMaxAgeHours  = 24
)

// Service holds the settings and metadata singletons.
type Service struct {
	mtx    sync.RWMutex
	store  storage.StateStorer
	logger logging.Logger
	s      storage.Settings
	m      storage.Metadata
}

// New loads persisted settings and metadata, falling back to defaults
// on first start.
func New(store storage.StateStorer, logger logging.Logger) (*Service, error) {
	svc := &Service{
		store:  store,
		logger: logger,
	}

	err := store.Get(settingsKey, &svc.s)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		svc.s = storage.Settings{
			MaxCacheSize:       DefaultMaxCacheSize,
			MaxAgeHours:        DefaultMaxAgeHours,
			SyncOnReconnect:    true,
			CompressionEnabled: true,
			PriorityOrdering:   true,
		}
		if err := store.Put(settingsKey, svc.s); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	err = store.Get(metadataKey, &svc.m)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return svc, nil
}

// Settings returns a copy of the current settings.
func (svc *Service) Settings() storage.Settings {
	svc.mtx.RLock()
	defer svc.mtx.RUnlock()
	return svc.s
}

// Metadata returns a copy of the current metadata.
func (svc *Service) Metadata() storage.Metadata {
	svc.mtx.RLock()
	defer svc.mtx.RUnlock()
	return svc.m
}

// Update applies the patch, persists the result and returns it.
func (svc *Service) Update(p storage.SettingsPatch) (storage.Settings, error) {
	svc.mtx.Lock()
	defer svc.mtx.Unlock()

	updated := p.Apply(svc.s)
	if err := svc.store.Put(settingsKey, updated); err != nil {
		return svc.s, err
	}
	svc.s = updated
	return updated, nil
}

// Replace overwrites both singletons, used by backup import.
func (svc *Service) Replace(s storage.Settings, m storage.Metadata) error {
	svc.mtx.Lock()
	defer svc.mtx.Unlock()

	if err := svc.store.Put(settingsKey, s); err != nil {
		return err
	}
	if err := svc.store.Put(metadataKey, m); err != nil {
		return err
	}
	svc.s = s
	svc.m = m
	return nil
}

// SetLastSync records the time of the last successful sync transmission.
func (svc *Service) SetLastSync(t time.Time) error {
	svc.mtx.Lock()
	defer svc.mtx.Unlock()

	svc.m.LastSync = t
	return svc.store.Put(metadataKey, svc.m)
}

// SetTotalSize records the recomputed total store size.
func (svc *Service) SetTotalSize(n int64) error {
	svc.mtx.Lock()
	defer svc.mtx.Unlock()

	if svc.m.TotalSize == n {
		return nil
	}
	svc.m.TotalSize = n
	return svc.store.Put(metadataKey, svc.m)
}

// SetSchemaVersion records the store schema version reported at open.
func (svc *Service) SetSchemaVersion(v string) error {
	svc.mtx.Lock()
	defer svc.mtx.Unlock()

	if svc.m.SchemaVersion == v {
		return nil
	}
	svc.m.SchemaVersion = v
	return svc.store.Put(metadataKey, svc.m)
}
