package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	lorebookListToolName    = "lorebook_list"
	lorebookListDescription = "List the lorebooks available to the World State extension."
)

// LorebookListInput takes no arguments.
type LorebookListInput struct{}

// LorebookListOutput represents the output of the lorebook_list tool.
type LorebookListOutput struct {
	Lorebooks []string `json:"lorebooks"`
	Selected  string   `json:"selected,omitempty"`
	Count     int      `json:"count"`
}

func (s *Server) handleLorebookList(ctx context.Context, _ *mcp.CallToolRequest, _ LorebookListInput) (*mcp.CallToolResult, LorebookListOutput, error) {
	names, err := s.config.Lorebooks.ListResources(ctx)
	if err != nil {
		s.config.Logger.Error("failed to list lorebooks", "error", err)
		return errorResult("Failed to list lorebooks: %v", err), LorebookListOutput{}, nil
	}
	if names == nil {
		names = []string{}
	}

	out := LorebookListOutput{
		Lorebooks: names,
		Selected:  s.config.Settings.Get(ctx).SelectedLorebook,
		Count:     len(names),
	}

	res, err := textResult(out)
	if err != nil {
		return errorResult("Failed to serialize lorebooks: %v", err), LorebookListOutput{}, nil
	}
	return res, out, nil
}
