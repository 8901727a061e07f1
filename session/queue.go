package session

import "sync"

type eventKind int

const (
	evAttachTick eventKind = iota + 1
	evMutation
	evQuantity
	evResize
	evRecomputed
	evDispose
)

type event struct {
	kind     eventKind
	itemID   string
	quantity int
	width    float64
	result   *cycleResult
}

// eventQueue is an unbounded FIFO feeding the session loop. Enqueue never
// blocks, so timer callbacks and storefront listeners can post from any
// goroutine. The buffered signal channel coalesces wakeups.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue returns false once the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]
	q.events[0] = event{}
	q.events = q.events[1:]
	return e, true
}

func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close drops queued events and rejects new ones.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.events = nil
}
