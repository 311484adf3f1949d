package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"gastos/internal/config"
	applog "gastos/internal/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	Format   string // "text" | "json"
	LogLevel string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gastos CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gastos",
		Short:         "Shared expense tracker",
		Long:          "Records expenses locally and keeps them in sync with a remote table and photo bucket.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "env file to load (default .env when present)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

// loadConfig reads env and config, applies flag overrides and sets up logging on
// the command's error stream.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, *applog.Logger, error) {
	if err := LoadEnvFile(o.EnvFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, SetupLogger(cfg, cmd.ErrOrStderr()), nil
}

// withApp opens the backend and engine for the duration of fn.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) (err error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := openApp(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, app)
}

func (o *RootOptions) output(w io.Writer) *Output {
	return &Output{Format: o.Format, Writer: w}
}
