package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
	"github.com/papercomputeco/worldstate/pkg/eventstream/nop"
	"github.com/papercomputeco/worldstate/pkg/inject"
	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/logger"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/worldstate"
)

// DefaultTimeout bounds the work done for one generation.
const DefaultTimeout = 2 * time.Second

// Outcome is what a hook invocation did.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNoop     Outcome = "noop"
	OutcomeInjected Outcome = "injected"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

// SettingsSource supplies the current configuration.
type SettingsSource interface {
	Get(ctx context.Context) settings.Configuration
}

// GateConfig holds the collaborators of a Gate.
type GateConfig struct {
	Settings SettingsSource

	// Lorebooks supplies the character list. Optional.
	Lorebooks lorebook.Provider

	// Computer derives the text to inject. Defaults to worldstate.Nop.
	Computer worldstate.Computer

	Publisher eventstream.Publisher
	Notifier  notify.Notifier
	Logger    *slog.Logger

	// Timeout bounds one invocation. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Source is stamped on published events.
	Source eventstream.EventSource
}

// Gate is the world-state interceptor hook.
type Gate struct {
	settings  SettingsSource
	lorebooks lorebook.Provider
	computer  worldstate.Computer
	publisher eventstream.Publisher
	notifier  notify.Notifier
	logger    *slog.Logger
	timeout   time.Duration
	source    eventstream.EventSource
}

// NewGate builds a Gate.
func NewGate(c GateConfig) (*Gate, error) {
	if c.Settings == nil {
		return nil, errors.New("interceptor requires a settings source")
	}
	if c.Computer == nil {
		c.Computer = worldstate.Nop{}
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return &Gate{
		settings:  c.Settings,
		lorebooks: c.Lorebooks,
		computer:  c.Computer,
		publisher: c.Publisher,
		notifier:  c.Notifier,
		logger:    c.Logger.With("component", "interceptor"),
		timeout:   c.Timeout,
		source:    c.Source,
	}, nil
}

type result struct {
	outcome  Outcome
	reason   Reason
	injected int
	err      error
}

// Intercept runs the hook for one generation. It always returns: failures
// and panics are logged, reported and turned into OutcomeFailed with the
// messages untouched, and work past the timeout, the settings load
// included, yields OutcomeTimedOut. req.Abort is never called.
func (g *Gate) Intercept(ctx context.Context, req Request) (out Outcome) {
	start := time.Now()
	var res result

	defer func() {
		if r := recover(); r != nil {
			// Reporting failed; the decision already made stands.
			out = res.outcome
			if out == "" {
				out = OutcomeFailed
			}
		}
	}()

	res = g.intercept(ctx, req)
	g.record(ctx, req, res, time.Since(start))
	return res.outcome
}

func (g *Gate) intercept(ctx context.Context, req Request) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{outcome: OutcomeFailed, reason: ReasonRun, err: fmt.Errorf("interceptor panic: %v", r)}
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg, err := within(runCtx, func(ctx context.Context) (settings.Configuration, error) {
		return g.settings.Get(ctx), nil
	})
	if err != nil {
		return failure(err)
	}

	ok, reason := ShouldRun(cfg, req)
	if !ok {
		return result{outcome: OutcomeSkipped, reason: reason}
	}
	if req.Messages == nil {
		return result{outcome: OutcomeSkipped, reason: ReasonNoMessages}
	}

	history := llm.CloneMessages(*req.Messages)

	text, err := within(runCtx, func(ctx context.Context) (string, error) {
		return g.compute(ctx, cfg, history, req.ContextSize)
	})
	if err != nil {
		return failure(err)
	}
	if text == "" {
		return result{outcome: OutcomeNoop, reason: ReasonRun}
	}

	*req.Messages = inject.Insert(*req.Messages, text, cfg.InjectionStrategy)
	return result{outcome: OutcomeInjected, reason: ReasonRun, injected: len(text)}
}

func failure(err error) result {
	if errors.Is(err, context.DeadlineExceeded) {
		return result{outcome: OutcomeTimedOut, reason: ReasonRun, err: err}
	}
	return result{outcome: OutcomeFailed, reason: ReasonRun, err: err}
}

// within runs fn in its own goroutine and returns when fn does or ctx ends,
// whichever is first. A panic in fn is returned as an error.
func within[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("world state panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.v, o.err
	}
}

func (g *Gate) compute(ctx context.Context, cfg settings.Configuration, history []llm.Message, contextSize int) (string, error) {
	characters, err := g.characters(ctx, cfg)
	if err != nil {
		return "", err
	}

	g.logger.Debug("computing world state",
		"characters", len(characters),
		"messages", len(history),
		"context_size", contextSize,
	)

	return g.computer.Compute(ctx, worldstate.Input{
		History:     history,
		Characters:  characters,
		Config:      cfg,
		ContextSize: contextSize,
	})
}

// characters reads the selected character list. No selection is an empty
// list, not an error.
func (g *Gate) characters(ctx context.Context, cfg settings.Configuration) ([]string, error) {
	if g.lorebooks == nil || cfg.SelectedLorebook == "" || cfg.SelectedCharacterListEntry == "" {
		return nil, nil
	}

	book, err := g.lorebooks.LoadResource(ctx, cfg.SelectedLorebook)
	if err != nil {
		return nil, fmt.Errorf("loading lorebook %q: %w", cfg.SelectedLorebook, err)
	}

	entry, err := book.Entry(cfg.SelectedCharacterListEntry)
	if err != nil {
		return nil, err
	}

	return lorebook.ParseCharacterList(entry.Content, cfg.CharacterQuantity), nil
}

func (g *Gate) record(ctx context.Context, req Request, res result, elapsed time.Duration) {
	attrs := []any{
		"kind", req.Kind,
		"user_initiated", req.UserInitiated,
		"outcome", res.outcome,
		"reason", res.reason,
		"duration", elapsed,
	}

	switch res.outcome {
	case OutcomeFailed, OutcomeTimedOut:
		g.logger.Warn("world state skipped for this generation", append(attrs, "error", res.err)...)
		g.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Title:   "World State",
			Message: fmt.Sprintf("Generation continued without world state: %v", res.err),
		})
	case OutcomeInjected:
		g.logger.Info("world state injected", append(attrs, "chars", res.injected)...)
	default:
		g.logger.Debug("interceptor decision", attrs...)
	}

	ev := eventstream.NewInterceptionEvent(g.source)
	ev.Hook = HookName
	ev.GenerationKind = string(req.Kind)
	ev.UserInitiated = req.UserInitiated
	ev.Outcome = string(res.outcome)
	ev.Reason = string(res.reason)
	ev.DurationMs = elapsed.Milliseconds()
	ev.InjectedChars = res.injected
	if res.err != nil {
		ev.Error = res.err.Error()
	}

	if err := g.publisher.PublishInterception(context.WithoutCancel(ctx), ev); err != nil {
		g.logger.Warn("failed to publish interception event", "error", err)
	}
}
