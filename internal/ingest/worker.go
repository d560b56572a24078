package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/normalize"
)

// Worker drains the queue and feeds records through the router. A
// record that fails to process is logged and dropped; one bad record
// must never stall the intake.
type Worker struct {
	id     int
	queue  *Queue
	router *normalize.Router
	logger *zap.Logger
}

// NewWorker creates a Worker.
func NewWorker(id int, queue *Queue, router *normalize.Router, logger *zap.Logger) *Worker {
	return &Worker{
		id:     id,
		queue:  queue,
		router: router,
		logger: logger.With(zap.Int("worker_id", id)),
	}
}

// Run processes items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	for {
		item, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		id, err := w.router.Process(ctx, item.Record)
		if err != nil {
			w.logger.Warn("record dropped",
				zap.String("request_id", item.RequestID),
				zap.String("kind", string(item.Record.Kind())),
				zap.Error(err),
			)
			continue
		}
		w.logger.Debug("record processed",
			zap.String("request_id", item.RequestID),
			zap.String("kind", string(item.Record.Kind())),
			zap.String("entity_id", id),
		)
	}
}

// Pool fans out queue work to a fixed set of workers.
type Pool struct {
	workers []*Worker
}

// NewPool builds n workers over one queue.
func NewPool(n int, queue *Queue, router *normalize.Router, logger *zap.Logger) *Pool {
	workers := make([]*Worker, 0, n)
	for i := 0; i < n; i++ {
		workers = append(workers, NewWorker(i+1, queue, router, logger))
	}
	return &Pool{workers: workers}
}

// Run starts all workers and blocks until they stop: on context
// cancellation, or once the queue is closed and drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(wk *Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}
