package app

import "sync"

// QueueItem is one pending lookup. It is transient and never persisted:
// an item lost to a crash is re-discovered on the next feed read because
// its key never entered the checked set.
type QueueItem struct {
	// RawHandle is the handle exactly as discovered, passed verbatim to
	// the resolver.
	RawHandle string

	// Key is the canonical form of RawHandle.
	Key string

	// NotifyContext is an opaque label describing where the handle was
	// discovered. Carried through for logging only.
	NotifyContext string
}

// workQueue is the FIFO lane feeding the sequential worker. The index holds
// every key with an outstanding attempt: queued or currently in flight.
// Together with the checked set it gives the pipeline its core idempotence
// property, at most one outstanding attempt per key.
type workQueue struct {
	mu     sync.Mutex
	items  []QueueItem
	index  map[string]struct{}
	notify chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{
		index:  make(map[string]struct{}),
		notify: make(chan struct{}, 1),
	}
}

// offer appends an item unless its key already has an outstanding attempt.
// Returns whether the item was admitted.
func (q *workQueue) offer(item QueueItem) bool {
	q.mu.Lock()
	if _, ok := q.index[item.Key]; ok {
		q.mu.Unlock()
		return false
	}
	q.index[item.Key] = struct{}{}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return true
}

// pop removes the head item. The key stays in the index until done is
// called, so duplicate offers for an in-flight key are still rejected.
func (q *workQueue) pop() (QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return QueueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// done releases the key after its attempt finished, whatever the outcome.
func (q *workQueue) done(key string) {
	q.mu.Lock()
	delete(q.index, key)
	q.mu.Unlock()
}

func (q *workQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// wake nudges the worker without blocking; a single pending signal is
// enough because the worker drains the queue each time it wakes.
func (q *workQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// wakeCh is the channel the worker selects on while idle.
func (q *workQueue) wakeCh() <-chan struct{} {
	return q.notify
}
