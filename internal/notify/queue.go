package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const dispatchTimeout = 10 * time.Second

// Queue hands events to a background worker so the HTTP response never
// waits on notification delivery. A full queue drops the event.
type Queue struct {
	dispatcher *Dispatcher
	events     chan Event
	logger     *slog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewQueue(dispatcher *Dispatcher, size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		dispatcher: dispatcher,
		events:     make(chan Event, size),
		logger:     logger,
	}
}

// Start launches the worker.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true

	q.wg.Add(1)
	go q.run()

	q.logger.Info("notification queue started", "capacity", cap(q.events))
}

// Stop stops accepting events and waits for queued ones to be dispatched.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	started := q.started
	q.mu.Unlock()

	if started {
		q.wg.Wait()
	}
	q.logger.Info("notification queue stopped")
}

func (q *Queue) Notify(_ context.Context, ev Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("notification queue closed, dropping event", "event", ev.Type)
		return
	}

	select {
	case q.events <- ev:
	default:
		q.logger.Warn("notification queue full, dropping event", "event", ev.Type)
		q.dispatcher.metrics.Notification(string(ev.Type), "dropped")
	}
}

func (q *Queue) Pending() int {
	return len(q.events)
}

func (q *Queue) run() {
	defer q.wg.Done()

	for ev := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		q.dispatcher.Dispatch(ctx, ev)
		cancel()
	}
}
