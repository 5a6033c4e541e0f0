package jobs

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/resilience"
)

func TestClassify_NilPassesThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
}

func TestClassify_TransientIsReturnedForRetry(t *testing.T) {
	err := resilience.NewTransientError(eris.New("upstream 503"), 503)
	// Returned unwrapped: the queue retries it with backoff.
	assert.Equal(t, error(err), classify(err))
}

func TestClassify_ParseErrorIsCancelled(t *testing.T) {
	err := &model.ParseError{Strategy: "raw_object", Err: eris.New("bad json")}
	got := classify(err)
	require.Error(t, got)
	// Wrapped in the queue's cancel sentinel rather than returned as-is.
	assert.NotEqual(t, error(err), got)
	assert.Contains(t, got.Error(), "bad json")
}

func TestClassify_PermanentIsCancelled(t *testing.T) {
	err := resilience.NewPermanentError(eris.New("unprocessable"))
	got := classify(err)
	require.Error(t, got)
	assert.NotEqual(t, error(err), got)
}

func TestClassify_NotFoundIsCancelled(t *testing.T) {
	err := eris.Wrap(model.ErrNotFound, "store: business b-1")
	got := classify(err)
	require.Error(t, got)
	assert.NotEqual(t, err, got)
}

func TestClassify_ClientAPIErrorIsCancelled(t *testing.T) {
	err := &model.APIError{StatusCode: 422, Body: "unprocessable"}
	got := classify(err)
	require.Error(t, got)
	assert.NotEqual(t, error(err), got)
}

func TestClassify_ServerAPIErrorIsRetried(t *testing.T) {
	err := &model.APIError{StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, error(err), classify(err))
}

func TestClassify_UnknownErrorIsRetried(t *testing.T) {
	err := eris.New("something odd")
	assert.Equal(t, err, classify(err))
}
