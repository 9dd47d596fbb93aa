package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/redesblock/stash/core/storage"
)

// Transport delivers one queued operation to the remote backend. A nil
// error means the remote acknowledged the mutation; the returned id is
// the canonical remote id when the response carries one.
type Transport interface {
	Send(ctx context.Context, op storage.SyncOperation) (remoteID string, err error)
}

// TransportError is a network or remote failure during a sync attempt.
// It feeds the retry path and never fails the whole pass.
type TransportError struct {
	Action     storage.Action
	TargetType string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync transport %s %s: status %d", e.Action, e.TargetType, e.StatusCode)
	}
	return fmt.Sprintf("sync transport %s %s: %v", e.Action, e.TargetType, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPTransport sends operations to a REST style backend with one
// resource collection per target type. Creates POST to the collection,
// updates PUT and deletes DELETE to the item addressed by the payload
// id. Any non 2xx status is a failed attempt.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport returns a transport for the backend at baseURL. A
// nil client falls back to a client with a 30 second timeout.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		baseURL: baseURL,
		client:  client,
	}
}

func (t *HTTPTransport) Send(ctx context.Context, op storage.SyncOperation) (string, error) {
	var (
		method string
		url    = t.baseURL + "/" + op.TargetType
		body   io.Reader
	)
	switch op.Action {
	case storage.ActionCreate:
		method = http.MethodPost
		body = bytes.NewReader(op.Data)
	case storage.ActionUpdate:
		method = http.MethodPut
		if id := payloadID(op.Data); id != "" {
			url += "/" + id
		}
		body = bytes.NewReader(op.Data)
	case storage.ActionDelete:
		method = http.MethodDelete
		if id := payloadID(op.Data); id != "" {
			url += "/" + id
		}
	default:
		return "", storage.ErrInvalidAction
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", &TransportError{Action: op.Action, TargetType: op.TargetType, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &TransportError{Action: op.Action, TargetType: op.TargetType, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		return "", &TransportError{Action: op.Action, TargetType: op.TargetType, StatusCode: resp.StatusCode}
	}

	var ack struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// a success status without a parsable body is still a success,
		// just without a canonical id
		return "", nil
	}
	return ack.ID, nil
}

// payloadID extracts the record id carried in an operation payload.
// Payloads without an id field yield an empty string.
func payloadID(data json.RawMessage) string {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return ""
	}
	return p.ID
}
