// Package interceptor is the pre-generation hook. The host calls it before
// every generation; it decides whether to run, derives world-state text and
// injects it into the outgoing chat. It never fails the host's generation.
package interceptor

import (
	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

// GenerationKind is the host's label for why a generation is happening.
type GenerationKind string

const (
	KindNormal      GenerationKind = "normal"
	KindSwipe       GenerationKind = "swipe"
	KindRegenerate  GenerationKind = "regenerate"
	KindContinue    GenerationKind = "continue"
	KindImpersonate GenerationKind = "impersonate"
	KindQuiet       GenerationKind = "quiet"
	KindDryRun      GenerationKind = "dry-run"
)

// Internal reports whether the generation is a background one the user
// never sees.
func (k GenerationKind) Internal() bool {
	return k == KindQuiet || k == KindDryRun
}

// Request is one hook invocation.
type Request struct {
	// Messages is the outgoing chat. The hook may replace the slice.
	Messages *[]llm.Message

	// ContextSize is the host's token budget for the prompt.
	ContextSize int

	// Abort cancels the host's generation. The hook carries it but never
	// calls it.
	Abort func(immediately bool)

	Kind GenerationKind

	// UserInitiated is set when the user explicitly asked for this
	// generation (a send or a manual trigger).
	UserInitiated bool
}

// Reason explains a ShouldRun decision.
type Reason string

const (
	ReasonDisabled   Reason = "disabled"
	ReasonManualOnly Reason = "manual_only"
	ReasonInternal   Reason = "internal_generation"
	ReasonNoMessages Reason = "no_messages"
	ReasonRun        Reason = "run"
)

// ShouldRun decides whether the hook does any work for req. The checks run
// in order: the extension must be enabled, automatic runs need autoTrigger
// unless the user asked, and internal generations are always skipped.
func ShouldRun(cfg settings.Configuration, req Request) (bool, Reason) {
	if !cfg.Enabled {
		return false, ReasonDisabled
	}
	if !cfg.AutoTrigger && !req.UserInitiated {
		return false, ReasonManualOnly
	}
	if req.Kind.Internal() {
		return false, ReasonInternal
	}
	return true, ReasonRun
}
