package subscription

import (
	"sync"
	"sync/atomic"
)

// Handle wraps the cancel func of one live subscription.
type Handle struct {
	mu        sync.Mutex
	cancel    func()
	cancelled bool
	dropped   atomic.Bool
}

// Cancel drops the handle and runs its cancel func once.
func (h *Handle) Cancel() {
	h.dropped.Store(true)
	h.mu.Lock()
	cancel := h.cancel
	run := !h.cancelled && cancel != nil
	if run {
		h.cancelled = true
	}
	h.mu.Unlock()
	if run {
		cancel()
	}
}

// Attach binds cancel to a reserved handle. If the handle was dropped in the meantime
// cancel runs immediately.
func (h *Handle) Attach(cancel func()) {
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	if h.Dropped() {
		h.Cancel()
	}
}

// Dropped reports whether the handle was cancelled. Callbacks must check it before touching
// state since a snapshot may already be in flight when Cancel runs.
func (h *Handle) Dropped() bool {
	return h.dropped.Load()
}

// Guard wraps fn so it does nothing once the handle has been dropped.
func Guard[T any](h *Handle, fn func(T)) func(T) {
	return func(value T) {
		if h.Dropped() {
			return
		}
		fn(value)
	}
}

// Registry collects the handles of every subscription opened for one owner.
type Registry struct {
	mu      sync.Mutex
	handles []*Handle
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Reserve returns a handle whose cancel func is attached later with Attach. Callbacks
// wrapped by Guard can then be built before the subscription exists.
func (r *Registry) Reserve() *Handle {
	h := &Handle{}
	r.mu.Lock()
	closed := r.closed
	if !closed {
		r.handles = append(r.handles, h)
	}
	r.mu.Unlock()
	if closed {
		h.dropped.Store(true)
	}
	return h
}

func (r *Registry) Track(cancel func()) *Handle {
	h := r.Reserve()
	h.Attach(cancel)
	return h
}

// CancelAll cancels every tracked handle and forgets them.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close cancels everything and makes later Track calls cancel immediately.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.CancelAll()
}
