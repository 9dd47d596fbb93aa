// Package storage provides the types and interfaces shared by the
// stash persistence and synchronization components.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a record is not present in the store,
	// including records that were removed because they expired.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidAction is returned for sync actions outside the
	// create/update/delete set.
	ErrInvalidAction = errors.New("storage: invalid action")
)

// Priority biases eviction and sync ordering. It is a hint, not a hard
// guarantee of delivery order across target types.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	}
	return "unknown"
}

// ParsePriority parses the string form used on the wire and in
// configuration. Unknown values map to PriorityNormal.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	}
	return PriorityNormal
}

// Action is the mutation kind carried by a sync operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the supported sync actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Record is a single locally persisted domain record. The store owns the
// canonical instance; callers always operate on copies.
type Record struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"lastUpdated"`
	Synced    bool      `json:"synced"`
	Priority  Priority  `json:"priority"`
	ExpiresAt time.Time `json:"expiresAt"` // zero value means the record never expires
	Version   uint64    `json:"version"`
}

// Expired reports whether the record's expiry deadline has passed at t.
func (r *Record) Expired(t time.Time) bool {
	return !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(t)
}

// Clone returns a deep copy of the record so that callers can never
// observe or mutate store-owned state.
func (r *Record) Clone() Record {
	c := *r
	if r.Data != nil {
		c.Data = make([]byte, len(r.Data))
		copy(c.Data, r.Data)
	}
	return c
}

// SyncOperation is one pending mutation awaiting transmission to the
// remote backend.
type SyncOperation struct {
	ID         string          `json:"id"`
	Seq        uint64          `json:"seq"`
	Action     Action          `json:"action"`
	TargetType string          `json:"targetType"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
	Priority   Priority        `json:"priority"`
}

// Settings are the tunable engine policy parameters. A single instance
// is loaded at start and persisted on every change.
type Settings struct {
	MaxCacheSize       int64 `json:"maxCacheSizeBytes"`
	MaxAgeHours        int   `json:"maxAgeHours"`
	SyncOnReconnect    bool  `json:"syncOnReconnect"`
	CompressionEnabled bool  `json:"compressionEnabled"`
	PriorityOrdering   bool  `json:"priorityOrderingEnabled"`
}

// SettingsPatch is a partial settings update. Nil fields are left
// unchanged.
type SettingsPatch struct {
	MaxCacheSize       *int64 `json:"maxCacheSizeBytes"`
	MaxAgeHours        *int   `json:"maxAgeHours"`
	SyncOnReconnect    *bool  `json:"syncOnReconnect"`
	CompressionEnabled *bool  `json:"compressionEnabled"`
	PriorityOrdering   *bool  `json:"priorityOrderingEnabled"`
}

// Apply returns a copy of s with the non-nil patch fields applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.MaxCacheSize != nil {
		s.MaxCacheSize = *p.MaxCacheSize
	}
	if p.MaxAgeHours != nil {
		s.MaxAgeHours = *p.MaxAgeHours
	}
	if p.SyncOnReconnect != nil {
		s.SyncOnReconnect = *p.SyncOnReconnect
	}
	if p.CompressionEnabled != nil {
		s.CompressionEnabled = *p.CompressionEnabled
	}
	if p.PriorityOrdering != nil {
		s.PriorityOrdering = *p.PriorityOrdering
	}
	return s
}

// Metadata holds the running engine totals. TotalSize is derived and
// recomputed after structural changes to the store.
type Metadata struct {
	LastSync      time.Time `json:"lastSyncTimestamp"`
	TotalSize     int64     `json:"totalSizeBytes"`
	SchemaVersion string    `json:"schemaVersion"`
}

// SyncStats is the snapshot returned to callers interested in the
// synchronization backlog.
type SyncStats struct {
	TotalItems  int `json:"totalItems"`
	SyncedItems int `json:"syncedItems"`
	PendingSync int `json:"pendingSync"`
	FailedSync  int `json:"failedSync"`
	QueueSize   int `json:"queueSize"`
}

// StateIterFunc is called on every key/value pair during StateStorer
// iteration. Returning true stops the iteration.
type StateIterFunc func(key, value []byte) (stop bool, err error)

// StateStorer is a persisted key/value store for small engine state:
// the sync queue, settings and metadata singletons and counters.
type StateStorer interface {
	Get(key string, i interface{}) error
	Put(key string, i interface{}) error
	Delete(key string) error
	Iterate(prefix string, iterFunc StateIterFunc) error
	io.Closer
}

// StorageError wraps an I/O failure of the persistence layer. It is
// propagated to the caller of the triggering operation and never retried
// automatically.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
