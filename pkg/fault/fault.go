package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide whether to retry and what
// status to surface.
type Kind string

const (
	// Input kinds: the request or document is at fault, never retried.
	UnsupportedFormat Kind = "unsupported_format"
	CorruptInput      Kind = "corrupt_input"
	EmptyInput        Kind = "empty_input"
	EmptyDocument     Kind = "empty_document"
	EmptyQuery        Kind = "empty_query"
	InvalidQuery      Kind = "invalid_query"

	// RateLimited means the upstream signalled throttling. Retried with
	// backoff; exhaustion escalates to UpstreamUnavailable.
	RateLimited Kind = "rate_limited"

	// UpstreamUnavailable covers transport errors, 5xx responses and
	// timeouts from the embedding or search service.
	UpstreamUnavailable Kind = "upstream_unavailable"

	// SchemaConflict means the backing index exists with an incompatible
	// mapping. Never retried.
	SchemaConflict Kind = "schema_conflict"
)

// Error carries the failure kind, the pipeline stage reached, and the cause.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a message and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an Error around an underlying cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// WithStage tags err with the pipeline stage it occurred in. A stage already
// present is kept, so the innermost report wins.
func WithStage(err error, stage string) error {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Stage != "" {
			return err
		}
		return &Error{Kind: fe.Kind, Stage: stage, Msg: fe.Msg, Err: fe.Err}
	}
	return &Error{Kind: UpstreamUnavailable, Stage: stage, Err: err}
}

// KindOf returns the Kind of err, or UpstreamUnavailable for errors that
// carry no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return UpstreamUnavailable
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// IsInput reports whether k identifies a caller-side fault.
func IsInput(k Kind) bool {
	switch k {
	case UnsupportedFormat, CorruptInput, EmptyInput, EmptyDocument, EmptyQuery, InvalidQuery:
		return true
	}
	return false
}

// Retryable reports whether err may succeed on a later attempt.
func Retryable(err error) bool {
	switch KindOf(err) {
	case RateLimited, UpstreamUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps err to the status the API surfaces: 400 for input faults,
// 500 for everything else.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if IsInput(KindOf(err)) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
