package queue

import (
	"sync"

	"gorm.io/datatypes"

	"whiteboard-backend/internal/model"
)

// Kind mutation transaction variant
type Kind string

const (
	KindUpsert  Kind = "UPSERT"
	KindDelete  Kind = "DELETE"
	KindReorder Kind = "REORDER"
)

// ElementMutation one incoming element edit. The payload is opaque; the
// pipeline only peeks at its type discriminator.
type ElementMutation struct {
	UUID    string         `json:"uuid"`
	AssetID *int64         `json:"asset_id,omitempty"`
	Element datatypes.JSON `json:"element"`
}

// Transaction a queued mutation batch. Exclusively owned by the queue
// until the worker dequeues it; never shared or mutated concurrently.
type Transaction struct {
	Kind         Kind
	WhiteboardID int64
	CourseID     int64
	UserID       int64
	SocketID     string
	Elements     []ElementMutation      // KindUpsert
	UUIDs        []string               // KindDelete, KindReorder
	Direction    model.ReorderDirection // KindReorder
	UpdateOnly   bool                   // KindUpsert: reject uuids with no existing row
}

// MutationQueue unbounded many-producer/one-consumer FIFO. Producers
// never block on the browser-interactive path; the single consumer
// serializes all mutation processing, which is what keeps z-index
// assignment race free without row locks.
//
// A fixed-capacity channel would force a drop or a stall when full;
// mutations must do neither, hence the list + cond.
type MutationQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Transaction
	closed bool
}

// NewMutationQueue MutationQueue constructor. Construct one per process
// and inject it; it is deliberately not a package-level singleton so
// tests can build isolated instances.
func NewMutationQueue() *MutationQueue {
	q := &MutationQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a transaction. Non-blocking; returns false after Close.
func (q *MutationQueue) Enqueue(tx *Transaction) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, tx)
	q.cond.Signal()
	return true
}

// Dequeue blocks until a transaction is available or the queue closes.
// The second return is false only when the queue is closed and drained.
func (q *MutationQueue) Dequeue() (*Transaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}

	tx := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return tx, true
}

// Len queued transaction count.
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops intake and wakes the worker so it can drain and exit.
func (q *MutationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
