// Package inmemory provides a map-backed lorebook provider for tests and
// for hosts that push lorebooks over the bridge.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/worldstate/pkg/lorebook"
)

// Provider implements lorebook.Provider over an in-memory map.
type Provider struct {
	mu    sync.RWMutex
	books map[string]*lorebook.Resource
}

// NewProvider creates a Provider holding the given lorebooks.
func NewProvider(books ...*lorebook.Resource) *Provider {
	p := &Provider{books: make(map[string]*lorebook.Resource)}
	for _, b := range books {
		p.Put(b)
	}
	return p
}

// Put adds or replaces a lorebook.
func (p *Provider) Put(book *lorebook.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books[book.Name] = book
}

func (p *Provider) ListResources(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.books)), nil
}

func (p *Provider) LoadResource(_ context.Context, name string) (*lorebook.Resource, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	book, ok := p.books[name]
	if !ok {
		return nil, lorebook.NotFoundError{Name: name}
	}

	out := &lorebook.Resource{Name: book.Name, Entries: maps.Clone(book.Entries)}
	return out, nil
}
