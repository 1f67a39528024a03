package queue

import (
	"context"
	"log"
)

// Processor runs one mutation transaction to completion.
type Processor interface {
	Process(ctx context.Context, tx *Transaction) error
}

// Worker the queue's single consumer. Exactly one Worker per queue:
// strict arrival order, one transaction at a time, which linearizes all
// accepted mutations across every whiteboard.
type Worker struct {
	queue     *MutationQueue
	processor Processor
}

// NewWorker Worker constructor
func NewWorker(queue *MutationQueue, processor Processor) *Worker {
	return &Worker{queue: queue, processor: processor}
}

// Run consumes until the queue closes. A failing transaction is logged
// and dropped; retrying stale mutation state risks double side effects.
// The loop continues with the next one.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[MutationWorker] started")
	defer log.Printf("[MutationWorker] stopped")

	for {
		tx, ok := w.queue.Dequeue()
		if !ok {
			return
		}
		w.processOne(ctx, tx)
	}
}

func (w *Worker) processOne(ctx context.Context, tx *Transaction) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[MutationWorker] panic on whiteboard %d (%s): %v",
				tx.WhiteboardID, tx.Kind, r)
		}
	}()

	if err := w.processor.Process(ctx, tx); err != nil {
		log.Printf("[MutationWorker] dropped transaction for whiteboard %d (%s): %v",
			tx.WhiteboardID, tx.Kind, err)
	}
}
