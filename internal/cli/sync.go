package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/model"
	posync "github.com/nhle/po-intake/internal/sync"
	"github.com/nhle/po-intake/internal/theme"
)

// pushView is the output of the push command.
type pushView struct {
	Replay posync.ReplayReport `json:"replay"`
	Pass   posync.PassReport   `json:"pass"`
}

func newPushCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Deliver every pending submission now (admin)",
		Long: `Replay the retry queue, then run a sync pass over every pending submission.
Failures are logged and left pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := requireAdmin(a, opts); err != nil {
					return err
				}
				ctx := cmd.Context()
				a.Monitor.Probe(ctx)
				replay, pass := a.Engine.PushNow(ctx)

				view := pushView{Replay: replay, Pass: pass}
				if err := out.Emit(view, func(w io.Writer) {
					if pass.Skipped != "" {
						fmt.Fprintln(w, theme.HelpStyle.Render("sync skipped: "+pass.Skipped))
						return
					}
					fmt.Fprintf(w, "Sent %d of %d pending", pass.Sent, pass.Attempted)
					if replay.Delivered+replay.GaveUp+replay.Kept > 0 {
						fmt.Fprintf(w, "; retry queue: %d delivered, %d kept, %d dropped",
							replay.Delivered, replay.Kept, replay.GaveUp)
					}
					fmt.Fprintln(w)
				}); err != nil {
					return err
				}
				if pass.Failed > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d submission(s) still pending", pass.Failed))
				}
				return nil
			})
		},
	}
}

func newResendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <id>...",
		Short: "Resend submissions regardless of state (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := requireAdmin(a, opts); err != nil {
					return err
				}
				res := a.Engine.ResendMany(cmd.Context(), ids)
				if err := out.Emit(res, func(w io.Writer) {
					fmt.Fprintf(w, "Resent %s\n", res)
				}); err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("failed: %v", res.Failed))
				}
				return nil
			})
		},
	}
}

func newTestPostCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-post",
		Short: "Send a test payload to the webhook (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := requireAdmin(a, opts); err != nil {
					return err
				}
				res := a.Client.TestPost(cmd.Context())
				if err := out.Emit(res, func(w io.Writer) {
					if res.Success {
						fmt.Fprintln(w, theme.SuccessStyle.Render("Test post accepted"))
						return
					}
					fmt.Fprintln(w, theme.ErrorStyle.Render("Test post failed: "+res.Error))
				}); err != nil {
					return err
				}
				if !res.Success {
					return NewExitError(ExitFailure, "test post failed")
				}
				return nil
			})
		},
	}
}

func newHealthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the webhook answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				h := a.Client.HealthCheck(cmd.Context())
				if err := out.Emit(h, func(w io.Writer) {
					if h.Online {
						fmt.Fprintln(w, theme.SuccessStyle.Render("online"))
						return
					}
					fmt.Fprintln(w, theme.ErrorStyle.Render("offline: "+h.Error))
				}); err != nil {
					return err
				}
				if !h.Online {
					return NewExitError(ExitFailure, "webhook unreachable")
				}
				return nil
			})
		},
	}
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine and connectivity monitor",
		Long: `Run in the foreground: deliver pending submissions at startup, every sync
interval, and whenever the webhook becomes reachable again. Stops on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := a.Serve(ctx); err != nil {
					return err
				}

				st := a.Engine.Status()
				view := serveView{State: st.State.String(), Passes: st.Passes}
				if !st.LastSync.IsZero() {
					view.LastSync = model.FormatTime(st.LastSync)
				}
				return out.Emit(view, func(w io.Writer) {
					last := "never"
					if !st.LastSync.IsZero() {
						last = humanize.Time(st.LastSync)
					}
					fmt.Fprintf(w, "Stopped after %d sync pass(es), state %s, last clean sync %s\n",
						st.Passes, st.State, last)
				})
			})
		},
	}
}

type serveView struct {
	State    string `json:"state"`
	Passes   int    `json:"passes"`
	LastSync string `json:"lastSync,omitempty"`
}
