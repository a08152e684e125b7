// Package commands implements the datalens subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/internal/cli/output"
	"github.com/leapstack-labs/datalens/internal/config"
	"github.com/leapstack-labs/datalens/internal/engine"
)

// Runtime carries the loaded configuration and shared sinks into command
// implementations.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

type runtimeKey struct{}

// WithRuntime stores the runtime in the context.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// runtimeFrom retrieves the runtime installed by the root command.
func runtimeFrom(cmd *cobra.Command) (*Runtime, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*Runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return rt, nil
}

// openEngine builds the engine for a command invocation. The caller must
// Close it.
func openEngine(cmd *cobra.Command) (*engine.Engine, *Runtime, error) {
	rt, err := runtimeFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cmd.Context(), rt.Config, rt.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return eng, rt, nil
}

// NewLogger builds the CLI logger: debug level when verbose, warnings only
// otherwise.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
