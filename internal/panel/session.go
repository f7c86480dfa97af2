package panel

import (
	"context"
	"sync"
)

// GenerationState tracks the commit-message generation state machine.
type GenerationState int

// Generation states. Completed, cancelled and failed requests all fold
// back to StateIdle; a failure caused by an unavailable backend passes
// through StateFallbackOffered first.
const (
	StateIdle GenerationState = iota
	StateRequesting
	StateFallbackOffered
)

// Handle represents one outstanding generation request and carries its
// cancellation. Disposing is idempotent and is the sole cancellation
// mechanism: the generator observes it through the handle's context.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	disposed bool
}

// Context returns the cancellation context for the generation call.
func (h *Handle) Context() context.Context { return h.ctx }

// Dispose cancels the request. Double-dispose is a no-op.
func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.disposed = true
	h.cancel()
}

// Disposed reports whether the handle has been cancelled.
func (h *Handle) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

// GenerationSession owns at most one in-flight generation. Starting a new
// request while one is live disposes the predecessor, so two generations
// can never race to populate the same output target.
type GenerationSession struct {
	mu     sync.Mutex
	state  GenerationState
	handle *Handle
}

// NewGenerationSession returns an idle session.
func NewGenerationSession() *GenerationSession {
	return &GenerationSession{}
}

// State returns the current session state.
func (s *GenerationSession) State() GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin starts a new request, disposing any live predecessor, and returns
// its handle.
func (s *GenerationSession) Begin(parent context.Context) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		s.handle.Dispose()
	}
	ctx, cancel := context.WithCancel(parent)
	s.handle = &Handle{ctx: ctx, cancel: cancel}
	s.state = StateRequesting
	return s.handle
}

// Finish settles the request owned by h. It reports false when h is no
// longer the live handle or was disposed, in which case the caller must
// discard the result: a disposed request never reports partial output.
func (s *GenerationSession) Finish(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != h || h.Disposed() {
		return false
	}
	s.handle = nil
	s.state = StateIdle
	return true
}

// OfferFallback moves the request owned by h into the fallback negotiation.
// Like Finish it reports false for stale or disposed handles.
func (s *GenerationSession) OfferFallback(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != h || h.Disposed() {
		return false
	}
	s.handle = nil
	s.state = StateFallbackOffered
	return true
}

// ResolveFallback ends the fallback negotiation, returning to idle.
func (s *GenerationSession) ResolveFallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFallbackOffered {
		s.state = StateIdle
	}
}

// Cancel disposes the live handle, if any, and reports whether one was
// live.
func (s *GenerationSession) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return false
	}
	s.handle.Dispose()
	s.handle = nil
	s.state = StateIdle
	return true
}
