package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/worldstate/pkg/storage"
	"github.com/papercomputeco/worldstate/pkg/storage/inmemory"
)

// FailingDriver wraps an in-memory driver and fails reads or writes on
// demand.
type FailingDriver struct {
	*inmemory.Driver

	mu       sync.Mutex
	readErr  error
	writeErr error
	reads    int
	attempts int

	entered chan struct{}
	held    chan struct{}
}

// NewFailingDriver creates a FailingDriver that succeeds until told
// otherwise.
func NewFailingDriver() *FailingDriver {
	return &FailingDriver{Driver: inmemory.NewDriver()}
}

// FailReads makes every Read return err. A nil err restores normal reads.
func (d *FailingDriver) FailReads(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr = err
}

// FailWrites makes every Write return err. A nil err restores normal writes.
func (d *FailingDriver) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// HoldReads makes every Read block until release is called. entered
// receives once for each Read that starts waiting.
func (d *FailingDriver) HoldReads() (entered <-chan struct{}, release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entered = make(chan struct{}, 16)
	d.held = make(chan struct{})
	held := d.held

	var once sync.Once
	return d.entered, func() {
		once.Do(func() { close(held) })
	}
}

func (d *FailingDriver) Read(ctx context.Context, key string) (storage.Record, error) {
	d.mu.Lock()
	d.reads++
	err := d.readErr
	entered, held := d.entered, d.held
	d.mu.Unlock()

	if held != nil {
		entered <- struct{}{}
		<-held
	}

	if err != nil {
		return nil, err
	}
	return d.Driver.Read(ctx, key)
}

func (d *FailingDriver) Write(ctx context.Context, key string, rec storage.Record) error {
	d.mu.Lock()
	d.attempts++
	err := d.writeErr
	d.mu.Unlock()

	if err != nil {
		return err
	}
	return d.Driver.Write(ctx, key, rec)
}

// Reads returns the number of Read calls.
func (d *FailingDriver) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// WriteAttempts returns the number of Write calls, failed ones included.
func (d *FailingDriver) WriteAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}
