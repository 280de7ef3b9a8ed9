package fault_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beaconhq/beacon/pkg/fault"
)

func TestKindOf(t *testing.T) {
	err := fault.New(fault.EmptyQuery, "query text is empty")
	assert.Equal(t, fault.EmptyQuery, fault.KindOf(err))

	wrapped := fmt.Errorf("handling request: %w", err)
	assert.Equal(t, fault.EmptyQuery, fault.KindOf(wrapped))

	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(errors.New("plain")))
}

func TestWithStage(t *testing.T) {
	err := fault.WithStage(fault.New(fault.RateLimited, "throttled"), "embed")
	var fe *fault.Error
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, "embed", fe.Stage)
	assert.Contains(t, err.Error(), "embed")

	// An existing stage is not overwritten.
	err = fault.WithStage(err, "index")
	errors.As(err, &fe)
	assert.Equal(t, "embed", fe.Stage)

	// Unclassified errors are treated as upstream failures.
	err = fault.WithStage(errors.New("connection refused"), "index")
	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, fault.Retryable(fault.New(fault.RateLimited, "429")))
	assert.True(t, fault.Retryable(fault.New(fault.UpstreamUnavailable, "503")))
	assert.False(t, fault.Retryable(fault.New(fault.SchemaConflict, "dimension mismatch")))
	assert.False(t, fault.Retryable(fault.New(fault.CorruptInput, "not a pdf")))
	assert.False(t, fault.Retryable(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, fault.HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, fault.HTTPStatus(fault.New(fault.EmptyQuery, "")))
	assert.Equal(t, http.StatusBadRequest, fault.HTTPStatus(fault.New(fault.UnsupportedFormat, "")))
	assert.Equal(t, http.StatusInternalServerError, fault.HTTPStatus(fault.New(fault.UpstreamUnavailable, "")))
	assert.Equal(t, http.StatusInternalServerError, fault.HTTPStatus(fault.New(fault.SchemaConflict, "")))
	assert.Equal(t, http.StatusInternalServerError, fault.HTTPStatus(errors.New("plain")))
}
