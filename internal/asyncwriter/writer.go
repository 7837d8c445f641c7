package asyncwriter

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"fleetwatch/internal/observability/metrics"
)

// Job is one pending write. Apply must be an idempotent upsert keyed by
// a natural identifier so retries and out-of-order delivery are safe.
type Job struct {
	Key   string
	Apply func(ctx context.Context) error
}

// Writer persists side data off the evaluation loop with at-least-once
// delivery. Failed jobs are requeued after a backoff.
type Writer struct {
	jobs    chan Job
	logger  *log.Logger
	retries int
	backoff time.Duration

	mu      sync.Mutex
	closed  bool
	stopped chan struct{}
}

// Option customizes the writer.
type Option func(*Writer)

// WithQueueSize sets the pending job capacity.
func WithQueueSize(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.jobs = make(chan Job, size)
		}
	}
}

// WithRetries sets attempts per job before requeueing.
func WithRetries(retries int) Option {
	return func(w *Writer) {
		if retries > 0 {
			w.retries = retries
		}
	}
}

// WithBackoff sets the wait between failed attempts.
func WithBackoff(backoff time.Duration) Option {
	return func(w *Writer) {
		if backoff > 0 {
			w.backoff = backoff
		}
	}
}

// New constructs a writer. Call Start to begin draining the queue.
func New(logger *log.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	writer := &Writer{
		jobs:    make(chan Job, 256),
		logger:  logger,
		retries: 3,
		backoff: 500 * time.Millisecond,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// Enqueue queues a job for background persistence.
func (w *Writer) Enqueue(job Job) error {
	if w == nil {
		return errors.New("asyncwriter: nil writer")
	}
	if job.Apply == nil {
		return errors.New("asyncwriter: nil job apply")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("asyncwriter: writer closed")
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		return errors.New("asyncwriter: queue full")
	}
}

// Start drains the queue until ctx is cancelled or Close is called.
func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	go w.run(ctx)
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Writer) process(ctx context.Context, job Job) {
	var lastErr error
	for attempt := 1; attempt <= w.retries; attempt++ {
		err := job.Apply(ctx)
		if err == nil {
			metrics.IncWriterBatch(true)
			return
		}
		lastErr = err
		metrics.IncWriterRetry()
		if attempt < w.retries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
		}
	}

	metrics.IncWriterBatch(false)
	w.logger.Printf("asyncwriter: job %s failed after %d attempts, requeueing: %v", job.Key, w.retries, lastErr)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Printf("asyncwriter: writer closed, dropping job %s", job.Key)
		return
	}
	select {
	case w.jobs <- job:
	default:
		w.logger.Printf("asyncwriter: queue full, dropping job %s", job.Key)
	}
}

// Close stops accepting jobs and lets the worker drain what is queued.
func (w *Writer) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.jobs)
	<-w.stopped
}
