// Package ingest buffers raw records and fans them out to workers that
// drive the normalization pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/record"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("ingest queue closed")

// Item is one raw record waiting to be processed, tagged with the
// request that submitted it.
type Item struct {
	RequestID string
	Record    record.Record
}

// Queue is a bounded in-process buffer between the HTTP intake and the
// worker pool. Enqueue blocks when the buffer is full, which pushes
// backpressure onto the submitting crawler.
type Queue struct {
	items chan Item
	done  chan struct{}
}

// NewQueue creates a Queue with the given capacity.
func NewQueue(depth int) *Queue {
	return &Queue{
		items: make(chan Item, depth),
		done:  make(chan struct{}),
	}
}

// Enqueue adds an item, blocking until space is available or the
// context ends.
func (q *Queue) Enqueue(ctx context.Context, item Item) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.items <- item:
		metrics.SetQueueDepth(len(q.items))
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue: %w", ctx.Err())
	}
}

// Dequeue removes the next item, blocking until one is available.
// After Close it keeps returning buffered items until the buffer is
// empty, then reports false; records acknowledged with 202 are not
// dropped by shutdown. A cancelled context also reports false.
func (q *Queue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		metrics.SetQueueDepth(len(q.items))
		return item, true
	case <-q.done:
		select {
		case item := <-q.items:
			metrics.SetQueueDepth(len(q.items))
			return item, true
		default:
			return Item{}, false
		}
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depth reports the number of buffered items.
func (q *Queue) Depth() int {
	return len(q.items)
}

// Close rejects further Enqueue calls and switches Dequeue into drain
// mode: workers keep receiving buffered items until the queue is empty.
func (q *Queue) Close() {
	close(q.done)
}
