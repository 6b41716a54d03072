package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeReferentialIntegrity, "edge references unknown endpoint")
	assert.Equal(t, "[GRAPH_001] edge references unknown endpoint", e.Error())

	withDetail := e.WithDetail("edge=E1 target=C99")
	assert.Equal(t, "[GRAPH_001] edge references unknown endpoint: edge=E1 target=C99", withDetail.Error())
	// Original is not mutated.
	assert.Empty(t, e.Detail)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))

	cause := stderrors.New("connection refused")
	wrapped := Wrap(cause, ErrCodeDatabaseError, "snapshot load failed")
	require.NotNil(t, wrapped)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ErrCodeDatabaseError, GetCode(wrapped))
}

func TestWrap_PreservesCodeForUnknown(t *testing.T) {
	inner := New(ErrCodeConfigWeightInvalid, "negative weight")
	outer := Wrap(inner, CodeUnknown, "resolver failed")
	assert.Equal(t, ErrCodeConfigWeightInvalid, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeConvergenceNotReached, "hit iteration ceiling")
	outer := Wrap(inner, ErrCodeInternal, "propagation")
	assert.True(t, IsCode(outer, ErrCodeConvergenceNotReached))
	assert.False(t, IsCode(outer, ErrCodeCacheError))
	assert.False(t, IsCode(nil, ErrCodeInternal))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeReferentialIntegrity, "x")))
	assert.True(t, IsFatal(Configuration("bad damping")))
	assert.False(t, IsFatal(New(ErrCodeDetectorFailed, "x")))
	assert.False(t, IsFatal(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeTimeWindowInvalid, GetCode(New(ErrCodeTimeWindowInvalid, "x")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, ErrCodeReferentialIntegrity.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrCodeConfigWeightInvalid.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrCodeInternal.HTTPStatus())
}
