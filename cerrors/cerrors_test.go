package cerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcache/ccache/cerrors"
)

var errBackend = errors.New("backend unavailable")

func TestInvalidArgumentIsCheckedWithErrorsIs(t *testing.T) {
	err := cerrors.InvalidArgument("key must not be nil")
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidArgument)
	assert.True(t, cerrors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "key must not be nil")
}

func TestInvalidArgumentIsUnchecked(t *testing.T) {
	err := cerrors.InvalidArgument("bad")
	var unchecked cerrors.Unchecked
	require.ErrorAs(t, err, &unchecked)
	assert.True(t, unchecked.Unchecked())
}

func TestIsInvalidArgumentFalseForOtherErrors(t *testing.T) {
	assert.False(t, cerrors.IsInvalidArgument(errBackend))
	assert.False(t, cerrors.IsInvalidArgument(nil))
}

func TestWrapProducesProducerErrorWithUnwrap(t *testing.T) {
	wrapped := cerrors.Wrap(errBackend)
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, errBackend)
	assert.Contains(t, wrapped.Error(), "backend unavailable")
}

func TestWrapIsIdempotent(t *testing.T) {
	once := cerrors.Wrap(errBackend)
	twice := cerrors.Wrap(once)
	assert.Same(t, once, twice)
}

func TestDeliverToReaderRewrapsCheckedErrors(t *testing.T) {
	delivered := cerrors.DeliverToReader(errBackend)
	var pe *cerrors.ProducerError
	require.ErrorAs(t, delivered, &pe)
	assert.ErrorIs(t, delivered, errBackend)
}

func TestDeliverToReaderPassesUncheckedErrorsVerbatim(t *testing.T) {
	invalid := cerrors.InvalidArgument("nil producer")
	delivered := cerrors.DeliverToReader(invalid)
	assert.Same(t, invalid, delivered)
}

func TestDeliverToReaderDoesNotDoubleWrapAlreadyWrapped(t *testing.T) {
	already := cerrors.Wrap(errBackend)
	delivered := cerrors.DeliverToReader(already)
	assert.Same(t, already, delivered)
}
