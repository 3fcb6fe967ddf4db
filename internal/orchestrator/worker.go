package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/configs"
	"github.com/enterprise/aml-compliance/internal/queue"
)

// WorkerMetrics tracks pool-wide processing counts, grounded on the
// teacher's WorkerMetrics (internal/scoring/worker.go).
type WorkerMetrics struct {
	mu             sync.RWMutex
	ProcessedCount int64
	FailedCount    int64
	DeadLettered   int64
}

func (m *WorkerMetrics) recordSuccess() {
	m.mu.Lock()
	m.ProcessedCount++
	m.mu.Unlock()
}

func (m *WorkerMetrics) recordFailure() {
	m.mu.Lock()
	m.FailedCount++
	m.mu.Unlock()
}

func (m *WorkerMetrics) recordDeadLetter() {
	m.mu.Lock()
	m.DeadLettered++
	m.mu.Unlock()
}

// Worker pulls jobs from the queue and runs them through the Orchestrator,
// acknowledging only after the orchestrator returns. Grounded on the
// teacher's Worker.processLoop/processBatch.
type Worker struct {
	id     string
	orch   *Orchestrator
	queue  *queue.Queue
	config configs.WorkerConfig
	stopCh chan struct{}
}

func NewWorker(id string, orch *Orchestrator, q *queue.Queue, config configs.WorkerConfig) *Worker {
	return &Worker{id: id, orch: orch, queue: q, config: config, stopCh: make(chan struct{})}
}

func (w *Worker) processLoop(ctx context.Context, consumerName string, metrics *WorkerMetrics) {
	log.Info().Str("consumer", consumerName).Msg("worker goroutine started")
	for {
		select {
		case <-w.stopCh:
			log.Info().Str("consumer", consumerName).Msg("worker goroutine stopping")
			return
		case <-ctx.Done():
			return
		default:
			w.processBatch(ctx, consumerName, metrics)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, consumerName string, metrics *WorkerMetrics) {
	messages, err := w.queue.Consume(ctx, consumerName, 1, w.config.PollInterval)
	if err != nil {
		log.Error().Err(err).Str("consumer", consumerName).Msg("failed to consume jobs")
		time.Sleep(time.Second)
		return
	}
	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		if err := w.orch.Evaluate(ctx, msg.Job); err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Str("transaction_id", msg.Job.TransactionID.String()).
				Msg("evaluation failed")
			metrics.recordFailure()
			if err := w.queue.DeadLetter(ctx, msg.Job, err); err != nil {
				log.Error().Err(err).Msg("failed to dead-letter job")
			} else {
				metrics.recordDeadLetter()
			}
		} else {
			metrics.recordSuccess()
		}

		if ackErr := w.queue.Ack(ctx, msg.ID); ackErr != nil {
			log.Error().Err(ackErr).Str("message_id", msg.ID).Msg("failed to ack job")
		}
	}
}

// WorkerPool manages a fixed set of workers, grounded on the teacher's
// WorkerPool (internal/scoring/worker.go).
type WorkerPool struct {
	workers []*Worker
	metrics *WorkerMetrics
	wg      sync.WaitGroup
}

func NewWorkerPool(numWorkers int, orch *Orchestrator, q *queue.Queue, config configs.WorkerConfig) *WorkerPool {
	pool := &WorkerPool{workers: make([]*Worker, numWorkers), metrics: &WorkerMetrics{}}
	for i := 0; i < numWorkers; i++ {
		pool.workers[i] = NewWorker(fmt.Sprintf("worker-%d", i), orch, q, config)
	}
	return pool
}

// Start runs every worker until ctx is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	log.Info().Int("num_workers", len(p.workers)).Msg("starting worker pool")
	for _, worker := range p.workers {
		w := worker
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.processLoop(ctx, w.id, p.metrics)
		}()
	}
}

// Stop signals every worker to exit its loop and waits for them to drain.
func (p *WorkerPool) Stop() {
	log.Info().Msg("stopping worker pool")
	for _, worker := range p.workers {
		close(worker.stopCh)
	}
	p.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

// Metrics returns a snapshot of pool-wide processing counts.
func (p *WorkerPool) Metrics() WorkerMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return WorkerMetrics{
		ProcessedCount: p.metrics.ProcessedCount,
		FailedCount:    p.metrics.FailedCount,
		DeadLettered:   p.metrics.DeadLettered,
	}
}
