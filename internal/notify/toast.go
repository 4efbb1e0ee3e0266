package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Toast struct {
	ID        int       `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

const DefaultTTL = 5 * time.Second

// Queue holds the visible toasts. Each toast is dismissed automatically after the TTL.
type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	nextID    int
	toasts    []Toast
	timers    map[int]*time.Timer
	listeners map[int]func([]Toast)
	nextWatch int
	closed    bool
}

func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:       ttl,
		now:       time.Now,
		timers:    make(map[int]*time.Timer),
		listeners: make(map[int]func([]Toast)),
	}
}

func (q *Queue) Push(toast Toast) int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.nextID++
	toast.ID = q.nextID
	toast.CreatedAt = q.now()
	q.toasts = append(q.toasts, toast)
	id := toast.ID
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.Dismiss(id) })
	q.mu.Unlock()

	q.changed()
	return id
}

func (q *Queue) Dismiss(id int) {
	q.mu.Lock()
	found := false
	for i, toast := range q.toasts {
		if toast.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			found = true
			break
		}
	}
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	if found {
		q.changed()
	}
}

// List returns the visible toasts, oldest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast{}, q.toasts...)
}

// Drain returns the visible toasts and dismisses them.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	toasts := q.toasts
	q.toasts = nil
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	if len(toasts) > 0 {
		q.changed()
	}
	return toasts
}

// OnChange calls fn with the visible toasts whenever they change.
func (q *Queue) OnChange(fn func([]Toast)) (cancel func()) {
	q.mu.Lock()
	q.nextWatch++
	id := q.nextWatch
	q.listeners[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.toasts = nil
	q.listeners = make(map[int]func([]Toast))
	q.mu.Unlock()
}

func (q *Queue) changed() {
	q.mu.Lock()
	toasts := append([]Toast(nil), q.toasts...)
	listeners := make([]func([]Toast), 0, len(q.listeners))
	for _, fn := range q.listeners {
		listeners = append(listeners, fn)
	}
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(toasts)
	}
}
