// Package mock provides an in-memory sync transport for tests.
package mock

import (
	"context"
	"sync"

	"github.com/redesblock/stash/core/storage"
)

// Transport records every sent operation and answers with a
// configurable function. The zero value acknowledges everything.
type Transport struct {
	mtx      sync.Mutex
	sendFunc func(ctx context.Context, op storage.SyncOperation) (string, error)
	calls    []storage.SyncOperation
}

// New returns a transport answering with sendFunc. A nil sendFunc
// acknowledges every operation with an empty remote id.
func New(sendFunc func(ctx context.Context, op storage.SyncOperation) (string, error)) *Transport {
	return &Transport{sendFunc: sendFunc}
}

func (t *Transport) Send(ctx context.Context, op storage.SyncOperation) (string, error) {
	t.mtx.Lock()
	t.calls = append(t.calls, op)
	f := t.sendFunc
	t.mtx.Unlock()

	if f == nil {
		return "", nil
	}
	return f(ctx, op)
}

// Calls returns a copy of all operations sent so far.
func (t *Transport) Calls() []storage.SyncOperation {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([]storage.SyncOperation(nil), t.calls...)
}

// SendCount returns the number of transmission attempts.
func (t *Transport) SendCount() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.calls)
}
