package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/teamspace/internal/core/events"
)

const (
	defaultMaxWorkers = 4
	defaultQueueSize  = 256
	defaultTimeout    = 3 * time.Second
)

type Job struct {
	Organization string
	EventType    string
	EventID      string
	Payload      []byte
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				process(job)
			case <-ctx.Done():
				w.Logger.Debug("fanout worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Options struct {
	MaxWorkers int
	QueueSize  int
	Timeout    time.Duration
}

// Notifier queues events for delivery. Notify never blocks: when the queue
// is full or no transport is configured the event is dropped and counted.
type Notifier struct {
	transport Transport
	timeout   time.Duration
	metrics   *Metrics
	logger    *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewNotifier(transport Transport, opts Options, metrics *Metrics, logger *slog.Logger) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	n := &Notifier{
		transport:  transport,
		timeout:    opts.Timeout,
		metrics:    metrics,
		logger:     logger,
		maxWorkers: opts.MaxWorkers,
		jobQueue:   make(chan Job, opts.QueueSize),
		workerPool: make(chan chan Job, opts.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	if transport != nil {
		n.start()
	} else {
		logger.Info("fanout disabled: no transport configured")
	}
	return n
}

func (n *Notifier) start() {
	n.once.Do(func() {
		for i := 0; i < n.maxWorkers; i++ {
			NewWorker(i, n.workerPool, n.logger).Start(n.ctx, &n.wg, n.deliver)
		}

		n.wg.Add(1)
		go n.dispatch()

		n.logger.Info("fanout worker pool started",
			"max_workers", n.maxWorkers,
			"queue_size", cap(n.jobQueue))
	})
}

func (n *Notifier) dispatch() {
	defer n.wg.Done()

	for {
		select {
		case job := <-n.jobQueue:
			select {
			case jobChannel := <-n.workerPool:
				select {
				case jobChannel <- job:
				case <-n.ctx.Done():
					return
				}
			case <-n.ctx.Done():
				return
			}
		case <-n.ctx.Done():
			return
		}
	}
}

// Notify enqueues event for orgSlug and returns immediately.
func (n *Notifier) Notify(ctx context.Context, orgSlug string, event events.Event) {
	if n.transport == nil {
		n.metrics.Dropped("unconfigured")
		return
	}
	if n.ctx.Err() != nil {
		n.metrics.Dropped("shutdown")
		return
	}

	payload, err := Encode(orgSlug, event)
	if err != nil {
		n.logger.ErrorContext(ctx, "fanout encode failed", "event_type", event.EventType(), "error", err)
		n.metrics.Failed()
		return
	}

	job := Job{
		Organization: orgSlug,
		EventType:    event.EventType(),
		EventID:      event.EventID(),
		Payload:      payload,
	}
	select {
	case n.jobQueue <- job:
		n.metrics.Queued(len(n.jobQueue))
	default:
		n.logger.WarnContext(ctx, "fanout queue full, dropping event",
			"event_type", job.EventType,
			"organization", orgSlug,
			"queue_capacity", cap(n.jobQueue))
		n.metrics.Dropped("queue_full")
	}
}

func (n *Notifier) deliver(job Job) {
	ctx, cancel := context.WithTimeout(n.ctx, n.timeout)
	defer cancel()

	start := time.Now()
	err := n.transport.Deliver(ctx, job.Organization, job.Payload)
	n.metrics.Observe(time.Since(start))
	if err != nil {
		n.logger.Warn("fanout delivery failed",
			"event_type", job.EventType,
			"event_id", job.EventID,
			"organization", job.Organization,
			"error", err)
		n.metrics.Failed()
		return
	}

	n.logger.Debug("fanout delivered", "event_type", job.EventType, "organization", job.Organization)
	n.metrics.Delivered()
}

// Shutdown stops the workers and closes the transport. Queued events that
// were not yet picked up are discarded.
func (n *Notifier) Shutdown() {
	n.stopOnce.Do(func() {
		n.logger.Info("shutting down fanout notifier")
		n.cancel()
		n.wg.Wait()
		if n.transport != nil {
			if err := n.transport.Close(); err != nil {
				n.logger.Warn("fanout transport close failed", "error", err)
			}
		}
		n.logger.Info("fanout notifier shutdown complete")
	})
}
