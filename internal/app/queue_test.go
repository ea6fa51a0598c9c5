package app

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := newWorkQueue()

	q.offer(QueueItem{RawHandle: "a", Key: "a"})
	q.offer(QueueItem{RawHandle: "b", Key: "b"})
	q.offer(QueueItem{RawHandle: "c", Key: "c"})

	for _, want := range []string{"a", "b", "c"} {
		item, ok := q.pop()
		if !ok || item.Key != want {
			t.Fatalf("pop = %v/%v, want %v", item.Key, ok, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("pop on empty queue returned an item")
	}
}

func TestQueueRejectsDuplicateKey(t *testing.T) {
	q := newWorkQueue()

	if !q.offer(QueueItem{RawHandle: "Foo Bar", Key: "foo bar"}) {
		t.Fatal("first offer rejected")
	}
	if q.offer(QueueItem{RawHandle: "foo  bar", Key: "foo bar"}) {
		t.Error("duplicate key admitted")
	}
}

func TestQueueKeyHeldWhileInFlight(t *testing.T) {
	q := newWorkQueue()
	q.offer(QueueItem{Key: "k"})

	if _, ok := q.pop(); !ok {
		t.Fatal("pop failed")
	}
	// Popped but not done: still one outstanding attempt for k.
	if q.offer(QueueItem{Key: "k"}) {
		t.Error("key admitted while in flight")
	}

	q.done("k")
	if !q.offer(QueueItem{Key: "k"}) {
		t.Error("key rejected after done")
	}
}

func TestQueueWake(t *testing.T) {
	q := newWorkQueue()
	q.offer(QueueItem{Key: "k"})

	select {
	case <-q.wakeCh():
	default:
		t.Error("offer did not signal the worker")
	}
}
