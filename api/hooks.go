package api

import (
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/worldstate/pkg/interceptor"
	"github.com/papercomputeco/worldstate/pkg/llm"
)

// HookRequest is the body of POST /hooks/:name.
type HookRequest struct {
	Messages      []llm.Message `json:"messages"`
	ContextSize   int           `json:"context_size"`
	Kind          string        `json:"kind,omitempty"`
	UserInitiated bool          `json:"user_initiated"`
}

// HookResponse carries the chat back to the host, with any injection applied.
type HookResponse struct {
	Outcome  interceptor.Outcome `json:"outcome"`
	Messages []llm.Message       `json:"messages"`
	Aborted  bool                `json:"aborted"`
}

// handleHook runs a registered interceptor against the posted chat.
func (s *Server) handleHook(c *fiber.Ctx) error {
	var body HookRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid hook request body"})
	}

	kind := interceptor.GenerationKind(body.Kind)
	if kind == "" {
		kind = interceptor.KindNormal
	}

	var aborted atomic.Bool
	msgs := body.Messages
	req := interceptor.Request{
		Messages:      &msgs,
		ContextSize:   body.ContextSize,
		Abort:         func(bool) { aborted.Store(true) },
		Kind:          kind,
		UserInitiated: body.UserInitiated,
	}
	if body.Messages == nil {
		req.Messages = nil
	}

	name := c.Params("name")
	outcome, err := s.ext.Registry().Invoke(c.UserContext(), name, req)
	if err != nil {
		if errors.Is(err, interceptor.ErrUnknownHook) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	if msgs == nil {
		msgs = []llm.Message{}
	}
	return c.JSON(HookResponse{
		Outcome:  outcome,
		Messages: msgs,
		Aborted:  aborted.Load(),
	})
}
