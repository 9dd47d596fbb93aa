package api_test

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/redesblock/stash/core/api"
	"github.com/redesblock/stash/core/engine"
	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/storage"
	transportmock "github.com/redesblock/stash/core/syncer/mock"
	"resenje.org/web"
)

type testServerOptions struct {
	Online    bool
	SendFunc  func(ctx context.Context, op storage.SyncOperation) (string, error)
	Transport *transportmock.Transport
}

func newTestServer(t *testing.T, o testServerOptions) (client *http.Client, e *engine.Engine, cleanup func()) {
	t.Helper()

	dir, err := ioutil.TempDir("", "stash-api")
	if err != nil {
		t.Fatal(err)
	}

	transport := o.Transport
	if transport == nil {
		sendFunc := o.SendFunc
		if sendFunc == nil {
			sendFunc = func(ctx context.Context, op storage.SyncOperation) (string, error) {
				return "remote-" + op.ID, nil
			}
		}
		transport = transportmock.New(sendFunc)
	}

	logger := logging.New(ioutil.Discard, 0)
	e, err = engine.New(engine.Options{
		DataDir:   dir,
		Transport: transport,
		Online:    o.Online,
	}, logger)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	s := api.New(e, nil, logger, nil)
	ts := httptest.NewServer(s)
	cleanup = func() {
		ts.Close()
		e.Close()
		os.RemoveAll(dir)
	}

	client = &http.Client{
		Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			u, err := url.Parse(ts.URL + r.URL.String())
			if err != nil {
				return nil, err
			}
			r.URL = u
			return ts.Client().Transport.RoundTrip(r)
		}),
	}
	return client, e, cleanup
}
