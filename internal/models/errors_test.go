package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorCodes(t *testing.T) {
	assert.Equal(t, CodeNotSignedIn, NewNotSignedInError().Code)
	assert.Equal(t, CodeNotFound, NewNotFoundError("post", "p1").Code)
	assert.Equal(t, CodeMalformed, NewMalformedError("post", "missing userId").Code)
	assert.Equal(t, CodeTransport, NewTransportError(errors.New("offline")).Code)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError(cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("loading feed: %w", NewNotFoundError("post", "p9"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsMalformed(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
}
