package panel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSingleFlight(t *testing.T) {
	s := NewGenerationSession()
	assert.Equal(t, StateIdle, s.State())

	first := s.Begin(context.Background())
	assert.Equal(t, StateRequesting, s.State())
	assert.False(t, first.Disposed())

	// Starting a second request disposes the first.
	second := s.Begin(context.Background())
	assert.True(t, first.Disposed())
	assert.Error(t, first.Context().Err())
	assert.False(t, second.Disposed())

	// The stale handle cannot settle the session.
	assert.False(t, s.Finish(first))
	assert.Equal(t, StateRequesting, s.State())

	assert.True(t, s.Finish(second))
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionCancel(t *testing.T) {
	s := NewGenerationSession()

	assert.False(t, s.Cancel(), "cancel with no live handle")

	h := s.Begin(context.Background())
	assert.True(t, s.Cancel())
	assert.True(t, h.Disposed())
	assert.Equal(t, StateIdle, s.State())

	// The disposed handle cannot finish.
	assert.False(t, s.Finish(h))
}

func TestHandleDoubleDisposeIsNoop(t *testing.T) {
	s := NewGenerationSession()
	h := s.Begin(context.Background())

	h.Dispose()
	require.NotPanics(t, func() { h.Dispose() })
	assert.True(t, h.Disposed())
}

func TestSessionFallbackFlow(t *testing.T) {
	s := NewGenerationSession()
	h := s.Begin(context.Background())

	require.True(t, s.OfferFallback(h))
	assert.Equal(t, StateFallbackOffered, s.State())

	s.ResolveFallback()
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionOfferFallbackStaleHandle(t *testing.T) {
	s := NewGenerationSession()
	h := s.Begin(context.Background())
	s.Cancel()

	assert.False(t, s.OfferFallback(h))
	assert.Equal(t, StateIdle, s.State())
}
