package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/worldstate/pkg/extension"
)

// Server is the HTTP bridge to an activated extension.
type Server struct {
	config Config
	ext    *extension.Extension
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server for ext.
func NewServer(config Config, ext *extension.Extension, logger *slog.Logger) (*Server, error) {
	if ext == nil {
		return nil, errors.New("extension is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		ext:    ext,
		logger: logger.With("component", "api"),
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	app.Get("/settings", s.handleGetSettings)
	app.Patch("/settings", s.handlePatchSettings)
	app.Post("/settings/reset", s.handleResetSettings)
	app.Get("/settings/keys", s.handleSettingsKeys)

	app.Get("/lorebooks", s.handleListLorebooks)
	app.Get("/lorebooks/:name", s.handleGetLorebook)

	app.Get("/connections/profiles", s.handleListProfiles)
	app.Get("/connections/presets", s.handleListPresets)

	app.Post("/hooks/:name", s.handleHook)

	app.Get("/notifications", s.handleNotifications)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
