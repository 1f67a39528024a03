package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationQueue_FIFO(t *testing.T) {
	q := NewMutationQueue()

	for i := int64(1); i <= 5; i++ {
		assert.True(t, q.Enqueue(&Transaction{WhiteboardID: i}))
	}
	assert.Equal(t, 5, q.Len())

	for i := int64(1); i <= 5; i++ {
		tx, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, tx.WhiteboardID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestMutationQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMutationQueue()

	got := make(chan *Transaction, 1)
	go func() {
		tx, ok := q.Dequeue()
		if ok {
			got <- tx
		}
	}()

	// The consumer is parked; feed it.
	q.Enqueue(&Transaction{WhiteboardID: 7})

	select {
	case tx := <-got:
		assert.Equal(t, int64(7), tx.WhiteboardID)
	case <-time.After(2 * time.Second):
		t.Fatal("Dequeue did not wake on Enqueue")
	}
}

func TestMutationQueue_CloseDrainsBeforeStopping(t *testing.T) {
	q := NewMutationQueue()
	q.Enqueue(&Transaction{WhiteboardID: 1})
	q.Enqueue(&Transaction{WhiteboardID: 2})
	q.Close()

	// Already-queued work survives Close.
	tx, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, int64(1), tx.WhiteboardID)

	tx, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, int64(2), tx.WhiteboardID)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestMutationQueue_EnqueueAfterClose(t *testing.T) {
	q := NewMutationQueue()
	q.Close()
	assert.False(t, q.Enqueue(&Transaction{WhiteboardID: 1}))
}

func TestMutationQueue_ConcurrentProducers(t *testing.T) {
	q := NewMutationQueue()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(&Transaction{Kind: KindUpsert})
			}
		}()
	}
	wg.Wait()
	q.Close()

	count := 0
	for {
		_, ok := q.Dequeue()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
