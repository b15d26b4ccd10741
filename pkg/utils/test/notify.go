package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/notify"
)

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

// NewRecordingNotifier creates an empty RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(_ context.Context, item notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

// Notifications returns a copy of what has been received.
func (n *RecordingNotifier) Notifications() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Notification, len(n.items))
	copy(out, n.items)
	return out
}

// RecordingPublisher is an eventstream.Publisher that keeps published events.
type RecordingPublisher struct {
	mu            sync.Mutex
	settings      []*eventstream.SettingsPersistedEvent
	interceptions []*eventstream.InterceptionEvent
	err           error
}

// NewRecordingPublisher creates an empty RecordingPublisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// FailWith makes every publish return err after recording the event.
func (p *RecordingPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *RecordingPublisher) PublishSettings(_ context.Context, event *eventstream.SettingsPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = append(p.settings, event)
	return p.err
}

func (p *RecordingPublisher) PublishInterception(_ context.Context, event *eventstream.InterceptionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interceptions = append(p.interceptions, event)
	return p.err
}

func (p *RecordingPublisher) Close() error {
	return nil
}

// SettingsEvents returns the recorded settings events.
func (p *RecordingPublisher) SettingsEvents() []*eventstream.SettingsPersistedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.SettingsPersistedEvent(nil), p.settings...)
}

// InterceptionEvents returns the recorded interception events.
func (p *RecordingPublisher) InterceptionEvents() []*eventstream.InterceptionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.InterceptionEvent(nil), p.interceptions...)
}
