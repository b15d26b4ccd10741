package nop

import (
	"context"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishSettings validates input and otherwise does nothing.
func (p *Publisher) PublishSettings(_ context.Context, event *eventstream.SettingsPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishInterception validates input and otherwise does nothing.
func (p *Publisher) PublishInterception(_ context.Context, event *eventstream.InterceptionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
