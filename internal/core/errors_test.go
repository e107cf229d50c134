package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := upstream("ingest", "chunk store write failed", cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, ErrUpstream, KindOf(err))
	assert.Equal(t, "chunk store write failed", MessageOf(err))

	wrapped := fmt.Errorf("handler: %w", conflict("ingest", "duplicate", nil))
	assert.Equal(t, ErrConflict, KindOf(wrapped))
	assert.Equal(t, "duplicate", MessageOf(wrapped))

	assert.Nil(t, KindOf(errors.New("plain")))
	assert.Equal(t, "ingest: duplicate", conflict("ingest", "duplicate", nil).Error())
}
