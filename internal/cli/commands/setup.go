package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapconnect/internal/config"
	"github.com/leapstack-labs/leapconnect/pkg/adapter"
	"github.com/leapstack-labs/leapconnect/pkg/connector"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/cobra"
)

type configKey struct{}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// getConfig returns the configuration stored by the root command, or the
// defaults when none is present.
func getConfig(ctx context.Context) *config.Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return cfg
		}
	}
	return &config.Config{
		LogLevel:  config.DefaultLogLevel,
		LogFormat: config.DefaultLogFormat,
		Output:    config.DefaultOutput,
	}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Service  *connector.Service
	Renderer *Renderer
}

// NewCommandContext builds the dependencies for cmd from its context.
// Adapters come from the default registry.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Service:  connector.New(adapter.Default(), logger),
		Renderer: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Output),
	}
}

// Connection resolves the connection a command should use.
func (c *CommandContext) Connection() (core.ConnectionConfig, error) {
	conn, err := c.Cfg.Lookup("")
	if err != nil {
		return conn, err
	}
	c.Logger.Debug("using connection",
		slog.String("connection", conn.Name),
		slog.String("engine", string(conn.Engine)))
	return conn, nil
}

// ExitError ends the process with Code without printing anything more; the
// command has already reported the failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
