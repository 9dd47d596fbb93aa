package localstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

// fixedSize makes every record count as exactly 100 bytes so tests can
// reason about the eviction budget.
func fixedSize(shed.Item) int64 { return 100 }

func setTestHookCollectGarbage(t *testing.T, f func(collected int)) {
	t.Helper()

	prev := testHookCollectGarbage
	testHookCollectGarbage = f
	t.Cleanup(func() {
		testHookCollectGarbage = prev
	})
}

func TestDB_evictionTarget(t *testing.T) {
	db := newTestDB(t, &Options{
		Capacity: 1000,
		SizeOf:   fixedSize,
	})
	ctx := context.Background()

	ts := time.Now().UTC().UnixNano()
	setNow(t, func() int64 { return ts })

	var collected int
	setTestHookCollectGarbage(t, func(n int) { collected += n })

	// fill exactly to capacity, no eviction yet
	for i := 0; i < 10; i++ {
		if _, err := db.Put(ctx, storage.Record{ID: fmt.Sprintf("n-%02d", i), Category: "notes", Data: []byte("x")}); err != nil {
			t.Fatal(err)
		}
		ts += int64(time.Second)
	}
	if collected != 0 {
		t.Fatalf("got %v collected, want 0 while within capacity", collected)
	}

	// one more write crosses the budget and shrinks the store to the
	// 80 percent target
	if _, err := db.Put(ctx, storage.Record{ID: "n-10", Category: "notes", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if collected != 3 {
		t.Errorf("got %v collected, want 3", collected)
	}
	size, err := db.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 800 {
		t.Errorf("got size %v, want 800", size)
	}

	// the oldest records go first when nothing is synced and all
	// priorities match
	for i := 0; i < 3; i++ {
		if has, _ := db.Has(ctx, fmt.Sprintf("n-%02d", i)); has {
			t.Errorf("n-%02d must be evicted", i)
		}
	}
	if has, _ := db.Has(ctx, "n-03"); !has {
		t.Error("n-03 must survive")
	}
	if has, _ := db.Has(ctx, "n-10"); !has {
		t.Error("n-10 must survive")
	}
}

func TestDB_evictionOrder(t *testing.T) {
	db := newTestDB(t, &Options{
		Capacity: 250,
		SizeOf:   fixedSize,
	})
	ctx := context.Background()

	ts := time.Now().UTC().UnixNano()
	setNow(t, func() int64 { return ts })

	// a1 is older but unsynced and high priority
	if _, err := db.Put(ctx, storage.Record{ID: "a1", Category: "notes", Data: []byte("x"), Priority: storage.PriorityHigh}); err != nil {
		t.Fatal(err)
	}
	ts += int64(time.Hour)

	// a2 is newer but synced and low priority
	if _, err := db.Put(ctx, storage.Record{ID: "a2", Category: "notes", Data: []byte("x"), Priority: storage.PriorityLow}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SetSynced(ctx, "a2"); err != nil {
		t.Fatal(err)
	}
	ts += int64(time.Hour)

	// the third write forces one eviction
	if _, err := db.Put(ctx, storage.Record{ID: "a3", Category: "notes", Data: []byte("x"), Priority: storage.PriorityNormal}); err != nil {
		t.Fatal(err)
	}

	if has, _ := db.Has(ctx, "a2"); has {
		t.Error("a2 must be evicted first: synced records are expendable")
	}
	if has, _ := db.Has(ctx, "a1"); !has {
		t.Error("a1 must survive: it holds an unacknowledged mutation")
	}
	if has, _ := db.Has(ctx, "a3"); !has {
		t.Error("a3 must survive")
	}
}

func TestDB_evictionDisabled(t *testing.T) {
	db := newTestDB(t, &Options{SizeOf: fixedSize})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := db.Put(ctx, storage.Record{ID: fmt.Sprintf("n-%02d", i), Category: "notes", Data: []byte("x")}); err != nil {
			t.Fatal(err)
		}
	}
	collected, err := db.Evict(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if collected != 0 {
		t.Errorf("got %v collected, want 0 with no capacity set", collected)
	}
	size, err := db.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 2000 {
		t.Errorf("got size %v, want 2000", size)
	}
}

func TestDB_sweepAged(t *testing.T) {
	db := newTestDB(t, nil)
	ctx := context.Background()

	ts := time.Now().UTC().UnixNano()
	setNow(t, func() int64 { return ts })

	// old records, written well before the cutoff
	if _, err := db.Put(ctx, storage.Record{ID: "old-synced", Category: "notes", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SetSynced(ctx, "old-synced"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Put(ctx, storage.Record{ID: "old-low", Category: "notes", Data: []byte("x"), Priority: storage.PriorityLow}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Put(ctx, storage.Record{ID: "old-pending", Category: "notes", Data: []byte("x"), Priority: storage.PriorityNormal}); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Unix(0, ts).Add(time.Hour)
	ts += int64(2 * time.Hour)

	// a fresh record, newer than the cutoff
	if _, err := db.Put(ctx, storage.Record{ID: "new-synced", Category: "notes", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SetSynced(ctx, "new-synced"); err != nil {
		t.Fatal(err)
	}

	count, err := db.SweepAged(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("got %v swept, want 2", count)
	}

	for _, id := range []string{"old-synced", "old-low"} {
		if has, _ := db.Has(ctx, id); has {
			t.Errorf("%s must be swept", id)
		}
	}
	// an aged record with a pending mutation is never dropped by the
	// age sweep
	for _, id := range []string{"old-pending", "new-synced"} {
		if has, _ := db.Has(ctx, id); !has {
			t.Errorf("%s must survive", id)
		}
	}
}

func TestDB_clear(t *testing.T) {
	db := newTestDB(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := db.Put(ctx, storage.Record{ID: fmt.Sprintf("n-%d", i), Category: "notes", Data: []byte("x")}); err != nil {
			t.Fatal(err)
		}
	}

	count, err := db.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("got %v cleared, want 5", count)
	}
	size, err := db.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("got size %v, want 0", size)
	}
	total, _, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("got total %v, want 0", total)
	}
}
