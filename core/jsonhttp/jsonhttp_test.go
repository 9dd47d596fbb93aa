package jsonhttp_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redesblock/stash/core/jsonhttp"
)

func TestRespond(t *testing.T) {
	for _, tc := range []struct {
		name       string
		statusCode int
		response   interface{}
		wantBody   string
	}{
		{
			name:       "nil response",
			statusCode: http.StatusNotFound,
			wantBody:   `{"message":"Not Found","code":404}` + "\n",
		},
		{
			name:       "string response",
			statusCode: http.StatusBadRequest,
			response:   "invalid priority",
			wantBody:   `{"message":"invalid priority","code":400}` + "\n",
		},
		{
			name:       "error response",
			statusCode: http.StatusInternalServerError,
			response:   errors.New("boom"),
			wantBody:   `{"message":"boom","code":500}` + "\n",
		},
		{
			name:       "struct response",
			statusCode: http.StatusOK,
			response:   struct{ ID string `json:"id"` }{ID: "a1"},
			wantBody:   `{"id":"a1"}` + "\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			jsonhttp.Respond(w, tc.statusCode, tc.response)

			if w.Code != tc.statusCode {
				t.Errorf("got status %v, want %v", w.Code, tc.statusCode)
			}
			if got := w.Header().Get("Content-Type"); got != jsonhttp.DefaultContentTypeHeader {
				t.Errorf("got content type %q, want %q", got, jsonhttp.DefaultContentTypeHeader)
			}
			if got := w.Body.String(); got != tc.wantBody {
				t.Errorf("got body %q, want %q", got, tc.wantBody)
			}
		})
	}
}

func TestMethodHandler(t *testing.T) {
	h := jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jsonhttp.OK(w, nil)
		}),
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %v, want %v", w.Code, http.StatusMethodNotAllowed)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("got status %v, want %v", w.Code, http.StatusOK)
	}
}
