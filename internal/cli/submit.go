package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/intake"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/schedule"
	"github.com/nhle/po-intake/internal/theme"
	"github.com/nhle/po-intake/internal/validate"
)

func newSubmitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit [form.json|-]",
		Short: "Submit a PO form",
		Long: `Validate a PO form, store it as pending, clear the saved draft and try to
deliver everything pending. A delivery failure leaves the PO pending; it is
retried on the next sync pass.

Example:
  pointake submit po.json
  cat po.json | pointake submit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			sub, err := model.DecodeSubmission(data)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid form JSON", err)
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				res, err := a.Intake.Submit(cmd.Context(), sub)
				if errors.Is(err, intake.ErrInvalid) {
					return invalid(out, res.Validation)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "submit failed", err)
				}
				return out.Emit(res, func(w io.Writer) {
					state := theme.StatusBadge(res.Delivered)
					fmt.Fprintf(w, "PO #%d stored %s\n", res.ID, state)
				})
			})
		},
	}
}

func newCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create [po.json|-]",
		Short: "Create a PO and deliver it with retries",
		Long: `Validate and store a PO, then deliver it through the retrying client. If
every attempt fails the delivery is parked in the retry queue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			sub, err := model.DecodeSubmission(data)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid PO JSON", err)
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				res, err := a.Intake.Create(cmd.Context(), sub)
				return emitCreate(out, res, err)
			})
		},
	}
}

func newReviseCommand(opts *RootOptions) *cobra.Command {
	var dropLines, dropScope []int

	cmd := &cobra.Command{
		Use:   "revise <id> [po.json|-]",
		Short: "Store a revision of an existing PO",
		Long: `Create a new PO carrying the content of the given file and a reference to
the PO it revises. The original is left untouched.

With --drop-line or --drop-scope and no file, the revision keeps the
original content minus the given 1-based rows. Remaining scope items are
renumbered.`,
		Example: `  pointake revise 12 revised.json
  pointake revise 12 --drop-line 3 --drop-scope 1 --drop-scope 4`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var next *model.Submission
			if len(args) == 2 || (len(dropLines) == 0 && len(dropScope) == 0) {
				data, err := readInput(cmd, args[1:])
				if err != nil {
					return err
				}
				sub, err := model.DecodeSubmission(data)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid PO JSON", err)
				}
				next = &sub
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				orig, err := a.Intake.Get(cmd.Context(), id)
				if err != nil {
					return WrapExitError(ExitCommandError, "revise failed", err)
				}
				base := *orig
				if next != nil {
					base.Meta = next.Meta
					base.Schedule = next.Schedule
					base.Scope = next.Scope
				}
				if err := dropRows(&base, dropLines, dropScope); err != nil {
					return err
				}

				res, err := a.Intake.Revise(cmd.Context(), id, func(s *model.Submission) {
					s.Meta = base.Meta
					s.Schedule = base.Schedule
					s.Scope = base.Scope
				})
				return emitCreate(out, res, err)
			})
		},
	}

	cmd.Flags().IntSliceVar(&dropLines, "drop-line", nil, "remove schedule row `n` (1-based, repeatable)")
	cmd.Flags().IntSliceVar(&dropScope, "drop-scope", nil, "remove scope row `n` (1-based, repeatable)")
	return cmd
}

// dropRows removes 1-based schedule and scope rows from sub. Scope items
// are renumbered afterwards.
func dropRows(sub *model.Submission, lines, scope []int) error {
	if len(lines) > 0 {
		tbl := schedule.NewTable(sub.Schedule)
		n := tbl.Len()
		for _, row := range descending(lines) {
			if !tbl.Remove(row - 1) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("schedule row %d out of range (1-%d)", row, n))
			}
		}
		sub.Schedule = tbl.Lines()
	}

	if len(scope) > 0 {
		kept := slices.Clone(sub.Scope)
		n := len(kept)
		for _, row := range descending(scope) {
			if row < 1 || row > len(kept) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("scope row %d out of range (1-%d)", row, n))
			}
			kept = slices.Delete(kept, row-1, row)
		}
		model.Renumber(kept)
		sub.Scope = kept
	}
	return nil
}

// descending dedupes rows and orders them so removals keep earlier
// indexes stable.
func descending(rows []int) []int {
	out := slices.Clone(rows)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}

func emitCreate(out *OutputFormatter, res intake.CreateResult, err error) error {
	if errors.Is(err, intake.ErrInvalid) {
		return invalid(out, res.Validation)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "create failed", err)
	}
	if err := out.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "PO #%d stored, sync %s\n", res.Submission.ID, res.SyncStatus)
		if res.Error != "" {
			fmt.Fprintln(w, theme.HelpStyle.Render(res.Error))
		}
	}); err != nil {
		return err
	}
	if res.SyncStatus == intake.SyncFailed {
		return NewExitError(ExitFailure, "delivery failed")
	}
	return nil
}

func invalid(out *OutputFormatter, v validate.Result) error {
	if err := out.Error("E_INVALID", "submission is invalid", v.Errors); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(v.Errors)))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
