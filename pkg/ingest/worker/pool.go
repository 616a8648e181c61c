// Package worker provides an asynchronous worker pool for ingesting document
// chunks through an ingest.Pipeline.
//
// The pool decouples embedding and index writes from the API's HTTP hot path
// so uploads return as soon as the document is accepted.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/ingest"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	DocID  string
	Chunks []chunk.Chunk
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Pipeline commits the job's chunks.
	Pipeline *ingest.Pipeline

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes ingest jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("ingest job queued",
			zap.String("doc_id", job.DocID),
			zap.Int("chunks", len(job.Chunks)),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("doc_id", job.DocID),
			zap.Int("chunks", len(job.Chunks)),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", zap.Uint("worker_id", id))
}

// processJob commits one document's chunks through the pipeline.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	n, err := p.config.Pipeline.Ingest(ctx, job.Chunks)
	if err != nil {
		p.logger.Error("async ingest failed",
			zap.String("doc_id", job.DocID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("document ingested",
		zap.String("doc_id", job.DocID),
		zap.Int("chunks", n),
	)
}
