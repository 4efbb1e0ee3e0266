package db

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// hub fans committed writes out to the listeners of the touched collections.
type hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
	closed   bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{logger: logger, watchers: make(map[string]map[*watcher]struct{})}
}

func (h *hub) add(w *watcher) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.watchers[w.collection]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[w.collection] = set
	}
	set[w] = struct{}{}
	return true
}

func (h *hub) remove(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[w.collection]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.watchers, w.collection)
		}
	}
}

func (h *hub) notify(collections map[string]struct{}) {
	h.mu.Lock()
	targets := []*watcher{}
	for collection := range collections {
		for w := range h.watchers[collection] {
			targets = append(targets, w)
		}
	}
	h.mu.Unlock()

	for _, w := range targets {
		w.poke()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	targets := []*watcher{}
	for _, set := range h.watchers {
		for w := range set {
			targets = append(targets, w)
		}
	}
	h.watchers = make(map[string]map[*watcher]struct{})
	h.mu.Unlock()

	for _, w := range targets {
		w.cancel()
	}
}

// watcher delivers snapshots of one query on its own goroutine. Pokes coalesce, so a
// burst of writes yields at most one extra snapshot.
type watcher struct {
	client     *Client
	collection string
	plan       plan
	onData     func([]Document)
	onError    func(error)

	wake      chan struct{}
	done      chan struct{}
	once      sync.Once
	cancelled atomic.Bool
	failure   atomic.Pointer[Error]
}

func (w *watcher) poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) fail(err *Error) {
	w.failure.Store(err)
	w.poke()
}

func (w *watcher) cancel() {
	w.once.Do(func() {
		w.cancelled.Store(true)
		close(w.done)
		w.client.store.hub.remove(w)
		w.client.mu.Lock()
		delete(w.client.watchers, w)
		w.client.mu.Unlock()
	})
}

func (w *watcher) run() {
	logger := w.client.store.logger
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}
		if w.cancelled.Load() {
			return
		}

		if failure := w.failure.Load(); failure != nil {
			w.deliverError(failure)
			return
		}

		docs, err := w.client.store.execute(context.Background(), w.client.store.db, w.collection, w.plan)
		if w.cancelled.Load() {
			return
		}
		if err != nil {
			logger.Debug("listener failed", "collection", w.collection, "error", err)
			w.deliverError(err)
			return
		}
		w.onData(docs)
	}
}

func (w *watcher) deliverError(err error) {
	w.cancel()
	if w.onError != nil {
		w.onError(err)
	}
}

// Subscribe delivers the query result now and after every write to the collection until
// the returned cancel func is called. A listener stops after its first error. Callbacks run
// on a goroutine owned by the listener and never start once cancel has returned.
func (c *Client) Subscribe(collection string, preds []Predicate, onData func([]Document), onError func(error)) (cancel func()) {
	w := &watcher{
		client:     c,
		collection: collection,
		onData:     onData,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	var setupErr error
	if err := c.authorizeCollection("listen", collection); err != nil {
		setupErr = err
	} else if p, err := compile(preds); err != nil {
		setupErr = err
	} else {
		w.plan = p
	}

	c.mu.Lock()
	c.watchers[w] = struct{}{}
	c.mu.Unlock()

	if setupErr == nil && c.revoked.Load() {
		setupErr = &Error{Code: CodePermissionDenied, Op: "listen " + collection, Err: ErrRevoked}
	}
	if setupErr == nil && !c.store.hub.add(w) {
		setupErr = newError(CodeUnavailable, "listen", "store is closed")
	}
	if setupErr != nil {
		var dbErr *Error
		if e, ok := setupErr.(*Error); ok {
			dbErr = e
		} else {
			dbErr = &Error{Code: CodeOf(setupErr), Op: "listen", Err: setupErr}
		}
		w.failure.Store(dbErr)
	}

	c.store.logger.Debug("listener opened", "collection", collection, "query", Describe(preds))
	go w.run()
	w.poke()
	return w.cancel
}
