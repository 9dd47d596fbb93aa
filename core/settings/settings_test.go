package settings

import (
	"io/ioutil"
	"testing"
	"time"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/statestore/mock"
	"github.com/redesblock/stash/core/storage"
)

func TestService_defaults(t *testing.T) {
	svc, err := New(mock.NewStateStore(), logging.New(ioutil.Discard, 0))
	if err != nil {
		t.Fatal(err)
	}

	s := svc.Settings()
	if s.MaxCacheSize != DefaultMaxCacheSize {
		t.Errorf("got max cache size %v, want %v", s.MaxCacheSize, DefaultMaxCacheSize)
	}
	if s.MaxAgeHours != DefaultMaxAgeHours {
		t.Errorf("got max age hours %v, want %v", s.MaxAgeHours, DefaultMaxAgeHours)
	}
	if !s.SyncOnReconnect || !s.CompressionEnabled || !s.PriorityOrdering {
		t.Errorf("got default flags %+v, want all enabled", s)
	}
}

func TestService_update(t *testing.T) {
	store := mock.NewStateStore()
	logger := logging.New(ioutil.Discard, 0)
	svc, err := New(store, logger)
	if err != nil {
		t.Fatal(err)
	}

	size := int64(1024)
	compress := false
	got, err := svc.Update(storage.SettingsPatch{
		MaxCacheSize:       &size,
		CompressionEnabled: &compress,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxCacheSize != size {
		t.Errorf("got max cache size %v, want %v", got.MaxCacheSize, size)
	}
	if got.CompressionEnabled {
		t.Error("got compression enabled, want disabled")
	}
	// untouched fields keep their values
	if got.MaxAgeHours != DefaultMaxAgeHours {
		t.Errorf("got max age hours %v, want %v", got.MaxAgeHours, DefaultMaxAgeHours)
	}

	// a new service over the same store sees the persisted values
	svc2, err := New(store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if got := svc2.Settings().MaxCacheSize; got != size {
		t.Errorf("got persisted max cache size %v, want %v", got, size)
	}
}

func TestService_metadata(t *testing.T) {
	store := mock.NewStateStore()
	logger := logging.New(ioutil.Discard, 0)
	svc, err := New(store, logger)
	if err != nil {
		t.Fatal(err)
	}

	syncTime := time.Unix(1700000000, 0).UTC()
	if err := svc.SetLastSync(syncTime); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetTotalSize(4096); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetSchemaVersion("1.0.0"); err != nil {
		t.Fatal(err)
	}

	svc2, err := New(store, logger)
	if err != nil {
		t.Fatal(err)
	}
	m := svc2.Metadata()
	if !m.LastSync.Equal(syncTime) {
		t.Errorf("got last sync %v, want %v", m.LastSync, syncTime)
	}
	if m.TotalSize != 4096 {
		t.Errorf("got total size %v, want %v", m.TotalSize, 4096)
	}
	if m.SchemaVersion != "1.0.0" {
		t.Errorf("got schema version %q, want %q", m.SchemaVersion, "1.0.0")
	}
}
