// Package worldstate defines the extension point that turns chat history and
// a character list into text to inject ahead of a generation.
package worldstate

import (
	"context"

	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

// Input is what a Computer sees for one generation.
type Input struct {
	// History is a copy of the outgoing chat; changes to it are discarded.
	History []llm.Message

	// Characters are the names read from the selected character list entry,
	// capped at the configured quantity.
	Characters []string

	Config settings.Configuration

	// ContextSize is the host's token budget for the prompt, 0 if unknown.
	ContextSize int
}

// Computer derives world-state text. An empty result means nothing is
// injected.
type Computer interface {
	Compute(ctx context.Context, in Input) (string, error)
}

// ComputerFunc adapts a function to Computer.
type ComputerFunc func(ctx context.Context, in Input) (string, error)

func (f ComputerFunc) Compute(ctx context.Context, in Input) (string, error) {
	return f(ctx, in)
}

// Nop computes nothing.
type Nop struct{}

func (Nop) Compute(context.Context, Input) (string, error) {
	return "", nil
}
