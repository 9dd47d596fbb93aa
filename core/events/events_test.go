package events

import (
	"io/ioutil"
	"testing"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
)

func TestBus_onOff(t *testing.T) {
	b := NewBus(logging.New(ioutil.Discard, 0))

	var got []string
	sub := b.On(TopicDataStored, func(e Event) {
		got = append(got, e.(DataStored).Record.ID)
	})

	b.Emit(DataStored{Record: storage.Record{ID: "a1"}})
	if len(got) != 1 || got[0] != "a1" {
		t.Fatalf("got delivered ids %v, want [a1]", got)
	}

	// events on other topics are not delivered
	b.Emit(DataDeleted{ID: "a1"})
	if len(got) != 1 {
		t.Fatalf("got %v deliveries, want 1", len(got))
	}

	b.Off(sub)
	b.Emit(DataStored{Record: storage.Record{ID: "a2"}})
	if len(got) != 1 {
		t.Fatalf("got %v deliveries after Off, want 1", len(got))
	}

	// removing twice is a no-op
	b.Off(sub)
	b.Off(nil)
}

func TestBus_registrationOrder(t *testing.T) {
	b := NewBus(logging.New(ioutil.Discard, 0))

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		b.On(TopicDataCleared, func(Event) {
			got = append(got, i)
		})
	}
	b.Emit(DataCleared{})

	for i, v := range got {
		if v != i {
			t.Fatalf("got delivery order %v, want registration order", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("got %v deliveries, want 5", len(got))
	}
}

// TestBus_panickingHandler validates that a panicking handler does not
// prevent delivery to remaining handlers or unwind the emitter.
func TestBus_panickingHandler(t *testing.T) {
	b := NewBus(logging.New(ioutil.Discard, 0))

	var delivered bool
	b.On(TopicSyncCompleted, func(Event) {
		panic("observer bug")
	})
	b.On(TopicSyncCompleted, func(Event) {
		delivered = true
	})

	b.Emit(SyncCompleted{Op: storage.SyncOperation{ID: "op-1"}})

	if !delivered {
		t.Error("second handler did not run after the first panicked")
	}
}
