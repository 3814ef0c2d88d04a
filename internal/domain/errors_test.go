package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorNilPassthrough(t *testing.T) {
	t.Parallel()

	err := NewError(ErrInternal, nil)
	assert.NoError(t, err)
}

func TestNewErrorWrapsKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewError(ErrTransientNetwork, cause)
	require.Error(t, err)

	var ke *KindError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, ErrTransientNetwork, ke.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrInternal, KindOf(errors.New("unclassified")))
	assert.Equal(t, ErrInternal, KindOf(nil))
}

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	t.Parallel()

	base := NewError(ErrNotFound, errors.New("lead missing"))
	wrapped := fmt.Errorf("lookup failed: %w", base)

	assert.Equal(t, ErrNotFound, KindOf(wrapped))
}

func TestErrorKindRetryable(t *testing.T) {
	t.Parallel()

	retryable := []ErrorKind{ErrTransientNetwork, ErrRateLimited}
	notRetryable := []ErrorKind{ErrNotFound, ErrIntegrityConflict, ErrMalformedInbound, ErrToolDomain, ErrMediaUnavailable, ErrLLMTimeout, ErrInternal}

	for _, k := range retryable {
		assert.Truef(t, k.Retryable(), "expected %s to be retryable", k)
	}
	for _, k := range notRetryable {
		assert.Falsef(t, k.Retryable(), "expected %s to not be retryable", k)
	}
}
