// Package mcp provides an MCP (Model Context Protocol) server exposing the
// world-state settings and lorebooks as agent tools.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/utils"
)

type Config struct {
	// Settings is the extension settings store
	Settings *settings.Store

	// Lorebooks lists knowledge bases (optional, enables lorebook_list tool)
	Lorebooks lorebook.Provider

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the settings tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "worldstate",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Settings == nil {
		return nil, errors.New("settings store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        settingsGetToolName,
		Description: settingsGetDescription,
	}, s.handleSettingsGet)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        settingsSetToolName,
		Description: settingsSetDescription,
	}, s.handleSettingsSet)

	if c.Lorebooks != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        lorebookListToolName,
			Description: lorebookListDescription,
		}, s.handleLorebookList)
	}

	s.mcpServer = mcpServer

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// errorResult is a tool-level failure the calling agent can read.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// textResult mirrors structured output as JSON text for clients that only
// read content blocks.
func textResult(out any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}
