// Package apperrors classifies request failures and writes them to clients.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tubeshelf/internal/domain/consts"
)

// Kind is a request failure class.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindRangeNotSatisfiable
	KindUpstream
	KindTimeout
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindNotFound:
		return "NotFound"
	case KindRangeNotSatisfiable:
		return "RangeNotSatisfiable"
	case KindUpstream:
		return "UpstreamError"
	case KindTimeout:
		return "Timeout"
	default:
		return "InternalError"
	}
}

// Error is a classified request failure.
//
// Msg is safe to show clients. Err is the cause and is only logged.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest rejects invalid input.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource.
func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Msg: msg, Err: err}
}

// RangeNotSatisfiable reports an out-of-bounds byte range.
func RangeNotSatisfiable() *Error {
	return &Error{Kind: KindRangeNotSatisfiable, Status: http.StatusRequestedRangeNotSatisfiable, Msg: "range not satisfiable"}
}

// Upstream passes an upstream HTTP failure status through.
func Upstream(status int, msg string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Msg: msg}
}

// Timeout reports an upstream that exceeded its time bound.
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Msg: "upstream timed out", Err: err}
}

// Internal hides an unexpected failure behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Msg: "internal server error", Err: err}
}

// From converts any error into an *Error, defaulting to Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Body is the JSON error payload.
type Body struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Write sends err to the client as JSON. Causes are never included.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	WriteMessage(w, e.Status, e.Msg)
}

// WriteMessage sends a JSON error with an explicit status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(consts.HeaderContentType, consts.MIMEJSON)
	w.Header().Del(consts.HeaderContentLength)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Success: false, Error: msg})
}
