package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/worldstate/pkg/settings"
)

var (
	settingsGetToolName    = "settings_get"
	settingsGetDescription = "Read the World State extension settings. With a key (dotted, e.g. injectionStrategy.depth) returns that value, otherwise the whole record."

	settingsSetToolName    = "settings_set"
	settingsSetDescription = "Change one World State extension setting by key (dotted, e.g. characterQuantity). Values are coerced; invalid numbers fall back to defaults."
)

// SettingsGetInput represents the input arguments for the settings_get tool.
type SettingsGetInput struct {
	Key string `json:"key,omitempty" jsonschema:"optional settings key in dotted notation"`
}

// SettingsSetInput represents the input arguments for the settings_set tool.
type SettingsSetInput struct {
	Key   string `json:"key" jsonschema:"settings key in dotted notation"`
	Value any    `json:"value" jsonschema:"new value for the key"`
}

// SettingsOutput is returned by both settings tools.
type SettingsOutput struct {
	Key      string                 `json:"key,omitempty"`
	Value    any                    `json:"value,omitempty"`
	Settings settings.Configuration `json:"settings"`
}

func (s *Server) handleSettingsGet(ctx context.Context, _ *mcp.CallToolRequest, input SettingsGetInput) (*mcp.CallToolResult, SettingsOutput, error) {
	cfg := s.config.Settings.Get(ctx)
	out := SettingsOutput{Settings: cfg}

	if input.Key != "" {
		v, err := settings.GetValue(cfg, input.Key)
		if err != nil {
			return errorResult("Unknown settings key %q (valid: %v)", input.Key, settings.Keys()), SettingsOutput{}, nil
		}
		out.Key = input.Key
		out.Value = v
	}

	res, err := textResult(out)
	if err != nil {
		return errorResult("Failed to serialize settings: %v", err), SettingsOutput{}, nil
	}
	return res, out, nil
}

func (s *Server) handleSettingsSet(ctx context.Context, _ *mcp.CallToolRequest, input SettingsSetInput) (*mcp.CallToolResult, SettingsOutput, error) {
	s.config.Logger.Debug("MCP settings_set request", "key", input.Key)

	if err := s.config.Settings.SetValue(ctx, input.Key, input.Value); err != nil {
		return errorResult("Failed to set %q: %v", input.Key, err), SettingsOutput{}, nil
	}

	cfg := s.config.Settings.Get(ctx)
	v, _ := settings.GetValue(cfg, input.Key)
	out := SettingsOutput{Key: input.Key, Value: v, Settings: cfg}

	res, err := textResult(out)
	if err != nil {
		return errorResult("Failed to serialize settings: %v", err), SettingsOutput{}, nil
	}
	return res, out, nil
}
