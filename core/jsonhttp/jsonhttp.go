// Package jsonhttp provides handlers and helpers for API responses in
// the canonical JSON form.
package jsonhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// DefaultContentTypeHeader is the value of the Content-Type header
	// set on every response.
	DefaultContentTypeHeader = "application/json; charset=utf-8"

	// ErrUnsupportedType is returned by Respond for response values
	// that cannot be encoded.
	ErrUnsupportedType = errors.New("jsonhttp: unsupported type")
)

// StatusResponse is the canonical error and status message body.
type StatusResponse struct {
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Respond writes the response with the given status code and a JSON
// encoded body. A nil response encodes to the canonical status message
// for the code; an error response encodes to its message.
func Respond(w http.ResponseWriter, statusCode int, response interface{}) {
	if response == nil {
		response = &StatusResponse{
			Message: http.StatusText(statusCode),
			Code:    statusCode,
		}
	} else {
		switch message := response.(type) {
		case string:
			response = &StatusResponse{
				Message: message,
				Code:    statusCode,
			}
		case error:
			response = &StatusResponse{
				Message: message.Error(),
				Code:    statusCode,
			}
		}
	}
	b, err := json.Marshal(response)
	if err != nil {
		http.Error(w, fmt.Sprintf("%v: %T", ErrUnsupportedType, response), http.StatusInternalServerError)
		return
	}
	b = append(b, '\n')

	w.Header().Set("Content-Type", DefaultContentTypeHeader)
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}

func OK(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusOK, response)
}

func Created(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusCreated, response)
}

func Accepted(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusAccepted, response)
}

func BadRequest(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusBadRequest, response)
}

func NotFound(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusNotFound, response)
}

func InternalServerError(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusInternalServerError, response)
}
