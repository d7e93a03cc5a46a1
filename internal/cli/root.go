package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config and Logger are resolved before any subcommand runs.
	Config Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the paramx CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "paramx",
		Short: "paramx - declarative request parameter shaping",
		Long: `Shape request payloads with declarative per-field rules.

Each endpoint lists the fields it accepts. A field is reduced through a chain
of reducers, checked by an optional validator, and written under its output
key unless the result is empty.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs on stderr)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml|json|toml); PARAMX_* env vars override it")

	for _, sub := range subcommands {
		cmd.AddCommand(sub(opts))
	}

	return cmd
}

// subcommands are registered under the root in help order.
var subcommands = []func(*RootOptions) *cobra.Command{
	NewValidateCommand,
	NewApplyCommand,
	NewTestCommand,
	NewHistoryCommand,
	NewReplayCommand,
}

// resolve loads the config and installs the diagnostic logger.
func (o *RootOptions) resolve(stderr io.Writer) error {
	cfg, err := LoadConfig(o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger, err := newLogger(stderr, cfg, o.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	o.Config = cfg
	o.Logger = logger
	return nil
}

// logger returns the configured logger, or one that discards everything
// when a subcommand runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// database picks the --db flag over the configured default.
func (o *RootOptions) database(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.DB
}
