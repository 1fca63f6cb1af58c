package queue

import (
	"sync"

	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
)

// DefaultCapacity bounds the queue when no explicit capacity is configured.
const DefaultCapacity = 1024

// Queue is a bounded FIFO of inbound messages. It decouples the transport's
// receive goroutine from the single-threaded processing tick: Enqueue is
// safe to call from the receive goroutine, DrainAll atomically removes and
// returns everything queued so the lock is never held across dispatch.
type Queue struct {
	mu       sync.Mutex
	messages []*protocol.Message
	capacity int
	dropped  uint64
}

// New creates a queue holding at most capacity messages. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Enqueue appends a message and reports whether it was accepted. A full
// queue drops the message; the transport is connectionless, so losing an
// inbound message under overload is equivalent to losing the datagram.
func (q *Queue) Enqueue(msg *protocol.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) >= q.capacity {
		q.dropped++
		return false
	}

	q.messages = append(q.messages, msg)
	return true
}

// DrainAll removes and returns every queued message in arrival order.
func (q *Queue) DrainAll() []*protocol.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return nil
	}

	drained := q.messages
	q.messages = nil
	return drained
}

// Len returns the number of currently queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Capacity returns the maximum number of queued messages.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Dropped returns the total number of messages rejected because the queue
// was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
