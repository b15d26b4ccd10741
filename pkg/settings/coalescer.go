package settings

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/worldstate/pkg/storage"
)

// WriteFunc persists one record.
type WriteFunc func(ctx context.Context, rec storage.Record) error

// Coalescer collapses bursts of writes into one. It holds a single pending
// record that every Schedule overwrites, and re-arms its timer each time, so
// the record is written once the burst has been quiet for the delay.
type Coalescer struct {
	mu      sync.Mutex
	writeMu sync.Mutex

	scheduler Scheduler
	delay     time.Duration
	write     WriteFunc
	onError   func(error)

	pending storage.Record
	timer   Timer
}

// NewCoalescer returns a Coalescer. A nil scheduler uses RealScheduler and a
// non-positive delay uses DefaultDebounce. onError receives failures from
// timer-driven writes and may be nil.
func NewCoalescer(scheduler Scheduler, delay time.Duration, write WriteFunc, onError func(error)) *Coalescer {
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}

	return &Coalescer{
		scheduler: scheduler,
		delay:     delay,
		write:     write,
		onError:   onError,
	}
}

// Schedule replaces the pending record with rec and restarts the delay.
func (c *Coalescer) Schedule(rec storage.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = rec.Clone()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.scheduler.AfterFunc(c.delay, c.fire)
}

// Pending reports whether a record is waiting to be written.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending != nil
}

// Flush cancels the timer and writes the pending record now. It is a no-op
// when nothing is pending.
func (c *Coalescer) Flush(ctx context.Context) error {
	return c.writePending(ctx)
}

func (c *Coalescer) fire() {
	if err := c.writePending(context.Background()); err != nil && c.onError != nil {
		c.onError(err)
	}
}

func (c *Coalescer) writePending(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	rec := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if rec == nil {
		return nil
	}

	err := c.write(ctx, rec)
	if err != nil {
		// Keep the record for the next Flush unless a newer one arrived.
		c.mu.Lock()
		if c.pending == nil {
			c.pending = rec
		}
		c.mu.Unlock()
	}
	return err
}
