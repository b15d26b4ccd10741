package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/worldstate/pkg/worldstate"
)

// FakeComputer is a worldstate.Computer with scripted behaviour.
type FakeComputer struct {
	mu sync.Mutex

	// Text is returned on success.
	Text string

	// Err is returned instead of Text when set.
	Err error

	// Panic, when non-nil, is raised from Compute.
	Panic any

	// Delay blocks Compute until it elapses or the context is done.
	Delay time.Duration

	inputs []worldstate.Input
}

func (f *FakeComputer) Compute(ctx context.Context, in worldstate.Input) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	text, err, p, delay := f.Text, f.Err, f.Panic, f.Delay
	f.mu.Unlock()

	if p != nil {
		panic(p)
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return text, err
}

// Inputs returns every input Compute has been called with.
func (f *FakeComputer) Inputs() []worldstate.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]worldstate.Input(nil), f.inputs...)
}
