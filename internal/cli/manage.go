package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/po-intake/internal/app"
	"github.com/nhle/po-intake/internal/export"
	"github.com/nhle/po-intake/internal/store"
	"github.com/nhle/po-intake/internal/theme"
)

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete submissions and notify the webhook (admin)",
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
				res := a.Intake.DeleteMany(cmd.Context(), ids)
				if err := out.Emit(res, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", res)
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

func newExportCommand(opts *RootOptions) *cobra.Command {
	var (
		status string
		output string
		xlsxID int64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submissions as JSON, or one schedule as XLSX",
		Long: `Write a JSON backup of the selected submissions, or with --xlsx the schedule
of values of one submission as a spreadsheet.

Example:
  pointake export --status pending
  pointake export --out - | jq .
  pointake export --xlsx 12 --out riverside.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := status
			if kind == "" {
				kind = "all"
			}
			if kind != "all" && kind != store.StatusSent && kind != store.StatusPending {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be all, sent or pending", status))
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				ctx := cmd.Context()
				var (
					data []byte
					name string
				)

				if xlsxID > 0 {
					sub, err := a.Intake.Get(ctx, xlsxID)
					if err != nil {
						return WrapExitError(ExitFailure, fmt.Sprintf("PO #%d", xlsxID), err)
					}
					data, err = export.ScheduleWorkbook(*sub)
					if err != nil {
						return WrapExitError(ExitCommandError, "building workbook", err)
					}
					name = fmt.Sprintf("po_%d_schedule.xlsx", xlsxID)
				} else {
					filter := store.StatusAll
					if kind != "all" {
						filter = kind
					}
					doc, err := a.Intake.Export(ctx, filter)
					if err != nil {
						return WrapExitError(ExitCommandError, "export failed", err)
					}
					var buf bytes.Buffer
					if err := export.WriteJSON(&buf, doc); err != nil {
						return WrapExitError(ExitCommandError, "export failed", err)
					}
					data = buf.Bytes()
					name = export.Filename(kind, opts.now())
				}

				if output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if output == "" {
					output = name
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "writing export", err)
				}
				return out.Emit(map[string]any{"path": output, "bytes": len(data)}, func(w io.Writer) {
					fmt.Fprintf(w, "Wrote %s\n", output)
				})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "all|sent|pending")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output path, - for stdout (default: generated name)")
	cmd.Flags().Int64Var(&xlsxID, "xlsx", 0, "export the schedule of this PO id as XLSX")

	return cmd
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [export.json|-]",
		Short: "Import submissions from a JSON export (admin)",
		Long: `Import a JSON export document or a bare array of submissions. Records with
an id keep it and their delivery state; ids already in use are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			subs, err := export.ParseDocument(data)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid import file", err)
			}

			return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
				if err := requireAdmin(a, opts); err != nil {
					return err
				}
				res, err := a.Intake.Import(cmd.Context(), subs)
				if err != nil {
					return WrapExitError(ExitFailure, "import failed", err)
				}
				return out.Emit(res, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d, skipped %d, failed %d\n", res.Imported, res.Skipped, res.Failed)
					for _, e := range res.Errors {
						fmt.Fprintln(w, theme.HelpStyle.Render("  "+e))
					}
				})
			})
		},
	}
}

func newDraftCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save, show or clear the in-progress form",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "save [form.json|-]",
			Short: "Save a form draft",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
					if err := a.Intake.SaveDraft(cmd.Context(), json.RawMessage(bytes.TrimSpace(data))); err != nil {
						return WrapExitError(ExitCommandError, "saving draft", err)
					}
					return out.Emit(map[string]bool{"saved": true}, func(w io.Writer) {
						fmt.Fprintln(w, "Draft saved")
					})
				})
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the saved draft",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
					draft, err := a.Intake.LoadDraft(cmd.Context())
					if err != nil {
						return WrapExitError(ExitCommandError, "loading draft", err)
					}
					return out.Emit(draft, func(w io.Writer) {
						if draft == nil {
							fmt.Fprintln(w, theme.HelpStyle.Render("No draft saved."))
							return
						}
						fmt.Fprintln(w, string(draft))
					})
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Discard the saved draft",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(opts, cmd, func(a *app.App, out *OutputFormatter) error {
					if err := a.Intake.ClearDraft(cmd.Context()); err != nil {
						return WrapExitError(ExitCommandError, "clearing draft", err)
					}
					return out.Emit(map[string]bool{"cleared": true}, func(w io.Writer) {
						fmt.Fprintln(w, "Draft cleared")
					})
				})
			},
		},
	)

	return cmd
}
