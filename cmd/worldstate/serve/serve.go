// Package servecmder provides the serve command, which runs the HTTP bridge
// and MCP server around an activated extension.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/worldstate/api"
	"github.com/papercomputeco/worldstate/api/mcp"
	"github.com/papercomputeco/worldstate/cmd/worldstate/backend"
	"github.com/papercomputeco/worldstate/pkg/config"
	"github.com/papercomputeco/worldstate/pkg/extension"
	"github.com/papercomputeco/worldstate/pkg/logger"
	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/worldstate"
)

// notificationLimit bounds the notifications kept for GET /notifications.
const notificationLimit = 50

type serveCommander struct {
	flags serveFlags
	debug bool
	out   io.Writer
	level *slog.LevelVar
	log   *slog.Logger
}

type serveFlags struct {
	listen         string
	storage        string
	sqlitePath     string
	postgresDSN    string
	moduleKey      string
	debounceMs     uint
	hookTimeoutMs  uint
	lorebookDir    string
	connections    string
	eventsProvider string
	eventsTopic    string
	logFile        string
	logSource      bool
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagModuleKey,
	config.FlagDebounce,
	config.FlagHookTimeout,
	config.FlagLorebookDir,
	config.FlagConnections,
	config.FlagEventsProvider,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the World State HTTP bridge and MCP server.

The extension is activated against the configured settings storage, the
interceptor hook is registered as "worldStateInterceptor", and the settings
panel backend, hook endpoint and MCP tools are served on one address:
  GET/PATCH /settings      Read or update the extension settings
  POST /hooks/:name        Run a registered pre-generation hook
  /mcp                     MCP streamable HTTP endpoint

Values come from flags, then WORLDSTATE_* environment variables, then
.worldstate/config.toml, then defaults.`

const serveShortDesc string = "Run the HTTP bridge and MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			r, err := backend.Resolve(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), r)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &f.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagModuleKey, &f.moduleKey)
	config.AddUintFlag(cmd, config.Flags, config.FlagDebounce, &f.debounceMs)
	config.AddUintFlag(cmd, config.Flags, config.FlagHookTimeout, &f.hookTimeoutMs)
	config.AddStringFlag(cmd, config.Flags, config.FlagLorebookDir, &f.lorebookDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagConnections, &f.connections)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &f.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &f.eventsTopic)
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&f.logSource, "log-source", false, "Include source file:line in logs")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, r *backend.Resolved) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.level = new(slog.LevelVar)
	base := slog.LevelInfo
	if c.debug {
		base = slog.LevelDebug
	}
	c.level.Set(base)

	closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	driver, err := backend.OpenDriver(ctx, r, c.log)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := backend.NewPublisher(r, c.log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	notifications := notify.NewBuffer(notificationLimit, c.log)

	ext, err := extension.Activate(ctx, extension.Options{
		Driver:      driver,
		ModuleKey:   r.Config.Settings.ModuleKey,
		Debounce:    r.Config.Debounce(),
		HookTimeout: r.Config.HookTimeout(),
		Lorebooks:   backend.Lorebooks(r),
		Connections: backend.Connections(r),
		Computer:    worldstate.Nop{},
		Publisher:   publisher,
		Notifier:    notifications,
		Logger:      c.log,
		Level:       c.level,
		BaseLevel:   base,
		Instance:    backend.Instance(),
	})
	if err != nil {
		return fmt.Errorf("activating extension: %w", err)
	}
	defer func() {
		if err := ext.Deactivate(context.Background()); err != nil {
			c.log.Error("deactivating extension", "error", err)
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Settings:  ext.Settings(),
		Lorebooks: ext.Lorebooks(),
		Logger:    c.log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:    r.Config.API.Listen,
		MCP:           mcpServer.Handler(),
		Notifications: notifications,
	}, ext, c.log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.log.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.log.Info("context done, shutting down")
	}

	if err := apiServer.Shutdown(); err != nil {
		c.log.Warn("API server shutdown", "error", err)
	}
	return nil
}

// newLogger builds the pretty terminal logger and, with --log-file, fans it
// out to a JSON log file. Both follow the shared level.
func (c *serveCommander) newLogger() (func(), error) {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	pretty := logger.New(
		logger.WithPretty(true),
		logger.WithLevel(c.level),
		logger.WithSource(c.flags.logSource),
		logger.WithWriter(out),
	)
	if c.flags.logFile == "" {
		c.log = pretty
		return func() {}, nil
	}

	logFile, err := os.OpenFile(c.flags.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.log = logger.Multi(pretty, logger.New(
		logger.WithJSON(true),
		logger.WithLevel(c.level),
		logger.WithSource(c.flags.logSource),
		logger.WithWriter(logFile),
	))
	return func() { _ = logFile.Close() }, nil
}
