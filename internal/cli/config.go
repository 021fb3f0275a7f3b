package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/theme"
)

// configView is the effective configuration. The API key is never shown.
type configView struct {
	ConfigPath string           `json:"configPath"`
	Endpoint   string           `json:"endpoint"`
	APIKeySet  bool             `json:"apiKeySet"`
	Sync       model.SyncConfig `json:"sync"`
	DBPath     string           `json:"dbPath"`
	DarkMode   bool             `json:"darkMode"`
	User       model.User       `json:"user"`
}

func newConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				remote := a.Client.Config()
				view := configView{
					ConfigPath: a.ConfigPath,
					Endpoint:   remote.Endpoint,
					APIKeySet:  remote.APIKey != "",
					Sync:       a.Config.Sync,
					DBPath:     a.Config.Storage.DBPath,
					DarkMode:   a.Config.Display.DarkMode,
					User:       a.Config.User,
				}
				view.Sync.Enabled = a.Resilient.Enabled()
				return out.Emit(view, func(w io.Writer) { renderConfig(w, view) })
			})
		},
	}

	cmd.AddCommand(
		newSetRemoteCommand(opts),
		newPINCommand(opts),
		newToggleCommand(opts, "dark-mode", "Use the dark or light palette", false,
			func(a *app.App, on bool) error { return a.SetDarkMode(on) }),
		newToggleCommand(opts, "sync", "Turn webhook delivery on or off (admin)", true,
			func(a *app.App, on bool) error { return a.SetSyncEnabled(on) }),
	)
	return cmd
}

func renderConfig(w io.Writer, v configView) {
	row := func(label string, value any) {
		fmt.Fprintf(w, "%s %v\n", theme.LabelStyle.Render(fmt.Sprintf("%-16s", label)), value)
	}
	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = "(not set)"
	}
	row("Config file", v.ConfigPath)
	row("Endpoint", endpoint)
	row("API key", map[bool]string{true: "set", false: "not set"}[v.APIKeySet])
	row("Sync enabled", v.Sync.Enabled)
	row("Sync interval", v.Sync.Interval)
	row("Timeout", v.Sync.Timeout)
	row("Retry", fmt.Sprintf("%d attempts, %s base delay", v.Sync.RetryAttempts, v.Sync.RetryDelay))
	row("Database", v.DBPath)
	row("Dark mode", v.DarkMode)
	row("User", fmt.Sprintf("%s (%s, %s)", v.User.Name, v.User.ID, v.User.Role))
}

func newSetRemoteCommand(opts *RootOptions) *cobra.Command {
	var endpoint, apiKey string

	cmd := &cobra.Command{
		Use:   "set-remote",
		Short: "Set the webhook endpoint and API key (admin)",
		Long: `Update the webhook settings. Only the flags given are changed; pass an empty
value to clear one. The change is saved immediately.

Example:
  pointake config set-remote --pin 1234 --endpoint https://hooks.example/po
  pointake config set-remote --pin 1234 --api-key ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.RemotePatch
			if cmd.Flags().Changed("endpoint") {
				patch.Endpoint = &endpoint
			}
			if cmd.Flags().Changed("api-key") {
				patch.APIKey = &apiKey
			}
			if patch.Endpoint == nil && patch.APIKey == nil {
				return NewExitError(ExitCommandError, "nothing to change: pass --endpoint and/or --api-key")
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := requireAdmin(a, opts); err != nil {
					return err
				}
				next, err := a.SetRemote(patch)
				if err != nil {
					return WrapExitError(ExitCommandError, "saving remote settings", err)
				}
				view := map[string]any{"endpoint": next.Endpoint, "apiKeySet": next.APIKey != ""}
				return out.Emit(view, func(w io.Writer) {
					fmt.Fprintln(w, theme.SuccessStyle.Render("Remote settings saved"))
				})
			})
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "webhook URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "value sent as x-api-key")
	return cmd
}

func newPINCommand(opts *RootOptions) *cobra.Command {
	var next string

	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Change the admin PIN",
		Long: `Change the admin PIN. The current PIN is given with --pin.

Example:
  pointake config pin --pin 1234 --new 482913`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := a.ChangePIN(opts.PIN, next); err != nil {
					return WrapExitError(ExitFailure, "changing PIN", err)
				}
				return out.Emit(map[string]bool{"changed": true}, func(w io.Writer) {
					fmt.Fprintln(w, theme.SuccessStyle.Render("Admin PIN changed"))
				})
			})
		},
	}

	cmd.Flags().StringVar(&next, "new", "", "new PIN")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func newToggleCommand(opts *RootOptions, name, short string, admin bool, set func(*app.App, bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       name + " on|off",
		Short:     short,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if admin {
					if err := requireAdmin(a, opts); err != nil {
						return err
					}
				}
				if err := set(a, on); err != nil {
					return WrapExitError(ExitCommandError, "saving "+name, err)
				}
				return out.Emit(map[string]bool{name: on}, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s\n", name, args[0])
				})
			})
		},
	}
}
