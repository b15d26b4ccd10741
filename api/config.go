// Package api provides the HTTP bridge a chat host uses to drive the
// world-state extension: the settings-panel backend, the generation hook
// endpoint and the MCP server.
package api

import (
	"net/http"

	"github.com/papercomputeco/worldstate/pkg/notify"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8765")
	ListenAddr string

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	// Notifications is drained by GET /notifications. Optional.
	Notifications *notify.Buffer
}
