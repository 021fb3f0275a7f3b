// Package cli is the pointake command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/credential"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
	LogFormat  string
	PIN        string

	// Ring and Now replace the OS keyring and the clock in tests.
	Ring *credential.Ring
	Now  func() time.Time
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pointake",
		Short: "Local-first purchase order intake",
		Long: `pointake stores purchase order submissions locally and relays them to a
webhook, retrying until each one is acknowledged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/pointake/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.PIN, "pin", "", "admin PIN for admin commands")

	cmd.AddCommand(
		newSubmitCommand(opts),
		newCreateCommand(opts),
		newReviseCommand(opts),
		newListCommand(opts),
		newShowCommand(opts),
		newPendingCommand(opts),
		newStatsCommand(opts),
		newPushCommand(opts),
		newResendCommand(opts),
		newDeleteCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newDraftCommand(opts),
		newConfigCommand(opts),
		newTestPostCommand(opts),
		newHealthCommand(opts),
		newServeCommand(opts),
	)

	return cmd
}

// withApp initializes the application for one command and shuts it down
// afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app.App, out *OutputFormatter) error) error {
	a, err := app.Init(app.Options{
		ConfigPath: opts.ConfigPath,
		Verbose:    opts.Verbose,
		LogFormat:  opts.LogFormat,
		LogOutput:  cmd.ErrOrStderr(),
		Ring:       opts.Ring,
		Notifier:   termNotifier{w: cmd.ErrOrStderr()},
		Now:        opts.Now,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer func() {
		if err := a.Shutdown(); err != nil {
			a.Logger.Error("shutting down", "error", err)
		}
	}()

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return fn(a, out)
}

// requireAdmin checks --pin.
func requireAdmin(a *app.App, opts *RootOptions) error {
	if err := a.VerifyPIN(opts.PIN); err != nil {
		return WrapExitError(ExitFailure, "admin PIN required (--pin)", err)
	}
	return nil
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return data, nil
}
