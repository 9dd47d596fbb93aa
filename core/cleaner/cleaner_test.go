package cleaner_test

import (
	"context"
	"io/ioutil"
	"testing"
	"time"

	"github.com/redesblock/stash/core/cleaner"
	"github.com/redesblock/stash/core/logging"
)

func TestCleaner_trigger(t *testing.T) {
	ran := make(chan struct{})
	c := cleaner.New(time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	}, logging.New(ioutil.Discard, 0))
	defer c.Close()

	c.Trigger()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("maintenance pass did not run on trigger")
	}
}

func TestCleaner_schedule(t *testing.T) {
	ran := make(chan struct{})
	c := cleaner.New(10*time.Millisecond, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, logging.New(ioutil.Discard, 0))
	defer c.Close()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("maintenance pass did not run on schedule")
	}
}

func TestCleaner_close(t *testing.T) {
	c := cleaner.New(10*time.Millisecond, func(context.Context) error {
		return nil
	}, logging.New(ioutil.Discard, 0))

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	// triggering a stopped cleaner must not block
	c.Trigger()
}
