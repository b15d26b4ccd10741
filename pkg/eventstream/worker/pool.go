// Package worker provides an asynchronous eventstream.Publisher backed by a
// worker pool.
//
// The pool decouples broker round trips from the settings write path and the
// interceptor hook, so a slow or unreachable broker never delays a generation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrClosed is returned when publishing to a closed pool.
var ErrClosed = errors.New("publisher pool is closed")

// Job is a unit of work for the worker pool: exactly one of Settings or
// Interception is set.
type Job struct {
	Settings     *eventstream.SettingsPersistedEvent
	Interception *eventstream.InterceptionEvent
}

func (j Job) eventType() string {
	switch {
	case j.Settings != nil:
		return j.Settings.EventType
	case j.Interception != nil:
		return j.Interception.EventType
	}
	return ""
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives events from the workers. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each downstream publish.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously through a worker pool. It implements
// eventstream.Publisher; publishing only enqueues.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher pool requires a downstream publisher")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger.With("component", "event_pool"),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

func (p *Pool) PublishSettings(_ context.Context, event *eventstream.SettingsPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.enqueue(Job{Settings: event})
}

func (p *Pool) PublishInterception(_ context.Context, event *eventstream.InterceptionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.enqueue(Job{Interception: event})
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	return p.enqueue(job) == nil
}

func (p *Pool) enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- job:
		p.logger.Debug("event queued", "event_type", job.eventType())
		return nil
	default:
		p.dropped.Add(1)
		p.logger.Error("event not queued, queue full, event dropped", "event_type", job.eventType())
		return fmt.Errorf("event queue full, dropped %s", job.eventType())
	}
}

// Stats reports how many events were published, failed downstream, or were
// dropped on a full queue.
func (p *Pool) Stats() (published, failed, dropped uint64) {
	return p.published.Load(), p.failed.Load(), p.dropped.Load()
}

// Close stops accepting events, waits for queued events to drain, then closes
// the downstream publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	var err error
	switch {
	case job.Settings != nil:
		err = p.config.Publisher.PublishSettings(ctx, job.Settings)
	case job.Interception != nil:
		err = p.config.Publisher.PublishInterception(ctx, job.Interception)
	default:
		return
	}

	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("async event publish failed",
			"event_type", job.eventType(),
			"error", err,
		)
		return
	}
	p.published.Add(1)
	p.logger.Debug("event published", "event_type", job.eventType())
}
