package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/intake"
	"github.com/nhle/po-intake/internal/store"
	"github.com/nhle/po-intake/internal/theme"
)

type listFlags struct {
	status     string
	query      string
	contractor string
	user       string
	from       string
	to         string
	min        float64
	max        float64
	page       int
	limit      int
	oldest     bool
}

func (f listFlags) build(cmd *cobra.Command) (intake.Query, error) {
	var q intake.Query
	switch f.status {
	case "all", "":
		q.Status = store.StatusAll
	case store.StatusSent, store.StatusPending:
		q.Status = f.status
	default:
		return q, NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be all, sent or pending", f.status))
	}

	if f.query != "" {
		q.Query = &f.query
	}
	if f.contractor != "" {
		q.Contractor = &f.contractor
	}
	if f.user != "" {
		q.UserID = &f.user
	}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{f.from, &q.DateFrom}, {f.to, &q.DateTo}} {
		if d.raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, d.raw, time.UTC)
		if err != nil {
			return q, WrapExitError(ExitCommandError, "invalid date (want YYYY-MM-DD)", err)
		}
		*d.dst = &t
	}
	if cmd.Flags().Changed("min") {
		q.MinAmount = &f.min
	}
	if cmd.Flags().Changed("max") {
		q.MaxAmount = &f.max
	}
	q.Oldest = f.oldest
	q.Limit = f.limit
	q.Page = f.page
	return q, nil
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List and search submissions",
		Long: `List submissions, newest first. The query matches project name, company,
general contractor, contact name or id.

Example:
  pointake list --status pending
  pointake list -q riverside --from 2024-03-01 --to 2024-03-31 --page 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.build(cmd)
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				page, err := a.Intake.List(cmd.Context(), q)
				if err != nil {
					return WrapExitError(ExitCommandError, "list failed", err)
				}
				return out.Emit(page, func(w io.Writer) {
					renderList(w, page.Items)
					if q.Page > 0 {
						fmt.Fprintln(w, theme.HelpStyle.Render(fmt.Sprintf(
							"page %d of %d, %d total", page.CurrentPage, page.TotalPages, page.TotalItems)))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&f.status, "status", "all", "all|sent|pending")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "search text")
	cmd.Flags().StringVar(&f.contractor, "contractor", "", "general contractor contains")
	cmd.Flags().StringVar(&f.user, "user", "", "submitted by user id")
	cmd.Flags().StringVar(&f.from, "from", "", "created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "created on or before (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&f.min, "min", 0, "minimum contract amount")
	cmd.Flags().Float64Var(&f.max, "max", 0, "maximum contract amount")
	cmd.Flags().IntVar(&f.page, "page", 0, "page number (1-based)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size")
	cmd.Flags().BoolVar(&f.oldest, "oldest", false, "oldest first")

	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				sub, err := a.Intake.Get(cmd.Context(), id)
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("PO #%d", id), err)
				}
				return out.Emit(sub, func(w io.Writer) { renderSubmission(w, *sub) })
			})
		},
	}
}

// pendingView is the output of the pending command.
type pendingView struct {
	Pending    int  `json:"pending"`
	Queued     int  `json:"queued"`
	Online     bool `json:"online"`
	SyncActive bool `json:"syncEnabled"`
}

func newPendingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show what is waiting to be delivered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				ctx := cmd.Context()
				subs, err := a.Store.GetPending(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "reading pending", err)
				}
				queue, err := a.Store.GetRetryQueue(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "reading retry queue", err)
				}

				view := pendingView{
					Pending:    len(subs),
					Queued:     len(queue),
					Online:     a.Monitor.Probe(ctx),
					SyncActive: a.Resilient.Enabled(),
				}
				return out.Emit(view, func(w io.Writer) {
					renderList(w, subs)
					state := theme.SuccessStyle.Render("online")
					if !view.Online {
						state = theme.ErrorStyle.Render("offline")
					}
					fmt.Fprintf(w, "%d pending, %d queued, %s\n", view.Pending, view.Queued, state)
					for _, e := range queue {
						fmt.Fprintf(w, "  %s %s, %d attempt(s), parked %s\n",
							theme.LabelStyle.Render(e.ID), e.Action, e.Attempts, humanize.Time(e.Timestamp))
					}
				})
			})
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				stats, err := a.Intake.Stats(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "stats failed", err)
				}
				return out.Emit(stats, func(w io.Writer) {
					fmt.Fprintf(w, "Total:          %d\n", stats.Total)
					fmt.Fprintf(w, "Sent:           %d\n", stats.Sent)
					fmt.Fprintf(w, "Pending:        %d\n", stats.Pending)
					fmt.Fprintf(w, "Total value:    %s\n", theme.Money(stats.TotalValue))
					fmt.Fprintf(w, "Average value:  %s\n", theme.Money(stats.AvgValue))
				})
			})
		},
	}
}
