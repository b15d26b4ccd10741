// Package eventstream publishes settings and interceptor events to an event
// stream backend.
package eventstream

import "context"

// Publisher publishes events to an event stream backend.
type Publisher interface {
	PublishSettings(ctx context.Context, event *SettingsPersistedEvent) error
	PublishInterception(ctx context.Context, event *InterceptionEvent) error
	Close() error
}
