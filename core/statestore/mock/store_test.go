package mock_test

import (
	"testing"

	"github.com/redesblock/stash/core/statestore/mock"
	"github.com/redesblock/stash/core/statestore/test"
	"github.com/redesblock/stash/core/storage"
)

func TestMockStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) storage.StateStorer {
		return mock.NewStateStore()
	})
}
