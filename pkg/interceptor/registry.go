package interceptor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// HookName is the name the world-state hook is registered under.
const HookName = "worldStateInterceptor"

// ErrUnknownHook is returned when invoking a name with no hook.
var ErrUnknownHook = errors.New("unknown interceptor hook")

// Hook is a pre-generation callback.
type Hook interface {
	Intercept(ctx context.Context, req Request) Outcome
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, req Request) Outcome

func (f HookFunc) Intercept(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}

// Registry maps hook names to hooks. The host's orchestrator invokes hooks
// by name.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register adds or replaces the hook under name.
func (r *Registry) Register(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = h
}

// Unregister removes the hook under name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, name)
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.hooks))
}

// Invoke runs the hook registered under name. The only error is
// ErrUnknownHook; a hook that panics yields OutcomeFailed.
func (r *Registry) Invoke(ctx context.Context, name string, req Request) (out Outcome, err error) {
	r.mu.RLock()
	h, ok := r.hooks[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}

	defer func() {
		if recover() != nil {
			out = OutcomeFailed
		}
	}()
	return h.Intercept(ctx, req), nil
}
