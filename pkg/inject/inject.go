// Package inject places generated text into an outgoing chat according to
// an injection strategy.
package inject

import (
	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

// Position returns the index at which text is inserted into a chat of n
// messages. Depth counts back from the end and is clamped to the chat.
func Position(n int, s settings.InjectionStrategy) int {
	switch s.Type {
	case settings.InjectionBefore:
		return 0
	case settings.InjectionAfter:
		return n
	default:
		return min(max(n-s.Depth, 0), n)
	}
}

// Insert returns a new chat with text added as a message under the
// strategy's role. Empty text returns msgs unchanged.
func Insert(msgs []llm.Message, text string, s settings.InjectionStrategy) []llm.Message {
	if text == "" {
		return msgs
	}

	role := string(s.Role)
	if role == "" {
		role = llm.RoleSystem
	}

	at := Position(len(msgs), s)
	out := make([]llm.Message, 0, len(msgs)+1)
	out = append(out, msgs[:at]...)
	out = append(out, llm.NewTextMessage(role, text))
	out = append(out, msgs[at:]...)
	return out
}
