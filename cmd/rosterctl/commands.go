package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/export"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/rules"
	"github.com/arnavshah/roster-planner-go/pkg/scheduler"
	"github.com/arnavshah/roster-planner-go/pkg/view"
)

type options struct {
	snapshot string
	from     string
	to       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Inspect and plan roster snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.snapshot, "snapshot", "roster.json", "snapshot file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&opts.from, "from", "", "first date of the window (YYYY-MM-DD)")
	root.PersistentFlags().StringVar(&opts.to, "to", "", "last date of the window, defaults to --from")

	root.AddCommand(
		newValidateCmd(opts),
		newViolationsCmd(opts),
		newRenderCmd(opts),
		newSolveCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func (o *options) load() (roster.State, error) {
	snap, err := readSnapshot(o.snapshot)
	if err != nil {
		return roster.State{}, err
	}
	return roster.FromSnapshot(snap), nil
}

func (o *options) window() ([]string, error) {
	if o.from == "" {
		return nil, errors.New("--from is required")
	}
	to := o.to
	if to == "" {
		to = o.from
	}
	days := dates.Range(o.from, to)
	if len(days) == 0 {
		return nil, fmt.Errorf("invalid window %s..%s", o.from, to)
	}
	return days, nil
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report problems in the snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(opts.snapshot)
			if err != nil {
				return err
			}
			problems := roster.ValidateSnapshot(snap)
			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(out, p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problems found", len(problems))
			}
			fmt.Fprintf(out, "OK: %d rows, %d clinicians, %d assignments\n", len(snap.Rows), len(snap.Clinicians), len(snap.Assignments))
			return nil
		},
	}
}

func newViolationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "violations",
		Short: "List rule violations in the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			days, err := opts.window()
			if err != nil {
				return err
			}
			res := rules.Detect(rules.InputFromState(s, days))
			out := cmd.OutOrStdout()
			for _, v := range res.Violations {
				fmt.Fprintf(out, "%s\t%s\n", v.ID, v.Summary)
			}
			fmt.Fprintf(out, "%d violations\n", len(res.Violations))
			return nil
		},
	}
}

func newRenderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Print the rendered grid for the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			days, err := opts.window()
			if err != nil {
				return err
			}
			renderGrid(cmd.OutOrStdout(), s, view.Build(view.InputFromState(s, days)), days)
			return nil
		},
	}
}

func renderGrid(out io.Writer, s roster.State, v view.View, days []string) {
	names := make(map[string]string, len(s.Clinicians))
	for _, c := range s.Clinicians {
		names[c.ID] = c.Name
	}
	for _, day := range days {
		fmt.Fprintln(out, day)
		for _, row := range s.Rows {
			list := v[roster.Key{RowID: row.ID, DateISO: day}]
			if len(list) == 0 {
				continue
			}
			people := make([]string, 0, len(list))
			for _, a := range list {
				n := names[a.ClinicianID]
				if n == "" {
					n = a.ClinicianID
				}
				people = append(people, n)
			}
			sort.Strings(people)
			label := row.Name
			if label == "" {
				label = row.ID
			}
			fmt.Fprintf(out, "  %-20s %s\n", label, strings.Join(people, ", "))
		}
	}
}

func newSolveCmd(opts *options) *cobra.Command {
	var onlyRequired, write bool
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run automated planning over the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			days, err := opts.window()
			if err != nil {
				return err
			}
			req := scheduler.Request{From: days[0], To: days[len(days)-1], OnlyRequired: onlyRequired}
			resp, err := scheduler.NewScheduler().Solve(context.Background(), s, req)
			if err != nil {
				return err
			}
			next, written := s.ApplyBulk(resp.Assignments)

			out := cmd.OutOrStdout()
			for _, n := range resp.Notes {
				fmt.Fprintln(out, n)
			}
			fmt.Fprintf(out, "%d proposed, %d written\n", len(resp.Assignments), written)
			if write && written > 0 {
				return writeSnapshot(opts.snapshot, next.Snapshot())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyRequired, "only-required", false, "only fill required seats")
	cmd.Flags().BoolVar(&write, "write", false, "write the result back to the snapshot file")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the window as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			days, err := opts.window()
			if err != nil {
				return err
			}

			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q, want csv or xlsx", format)
			}
			if format == "xlsx" && outPath == "" {
				return errors.New("xlsx export needs --out")
			}
			if outPath == "" {
				return writeExport(cmd.OutOrStdout(), format, s, days)
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			if err := writeExport(f, format, s, days); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&outPath, "out", "", "output file, stdout when empty")
	return cmd
}

func writeExport(w io.Writer, format string, s roster.State, days []string) error {
	if format == "xlsx" {
		return export.WriteXLSX(w, view.Build(view.InputFromState(s, days)), s, days)
	}
	return export.WriteCSV(w, s, days[0], days[len(days)-1])
}
