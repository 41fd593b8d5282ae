package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"authorship/internal/ledger"
)

var errLedgerDisabled = errors.New("run ledger disabled (paths.ledger_path is empty)")

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(db *ledger.Store) error {
				if db == nil {
					return errLedgerDisabled
				}
				runs, err := db.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []ledger.Run{}
					}
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					duration := "-"
					if run.FinishedAt != nil {
						duration = formatDuration(run.FinishedAt.Sub(run.StartedAt))
					}
					rows = append(rows, []string{
						run.ID,
						formatTime(run.StartedAt),
						string(run.Status),
						duration,
						strings.Join(run.EnabledStages, ","),
						strings.Join(run.Models, ","),
					})
				}
				return writeTable(cmd.OutOrStdout(),
					[]string{"Run", "Started", "Status", "Duration", "Recomputed", "Models"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show stage results and metrics of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(db *ledger.Store) error {
				if db == nil {
					return errLedgerDisabled
				}
				run, err := db.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				evals, err := db.Evaluations(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:     %s\n", run.ID)
				fmt.Fprintf(out, "Status:  %s\n", run.Status)
				fmt.Fprintf(out, "Started: %s\n", formatTime(run.StartedAt))
				fmt.Fprintf(out, "Seed:    %d\n", run.Seed)
				fmt.Fprintf(out, "Corpus:  %s\n", shortFP(run.Corpus))
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:   %s\n", run.ErrorMessage)
				}
				fmt.Fprintln(out)

				rows := make([][]string, 0, len(run.Stages))
				for _, res := range run.Stages {
					rows = append(rows, []string{string(res.Stage), string(res.Status), strconv.Itoa(len(res.Artifacts)), formatDuration(res.Duration), res.Error})
				}
				if err := writeTable(out, []string{"Stage", "Status", "Artifacts", "Duration", "Error"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}); err != nil {
					return err
				}
				if len(evals) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				evalRows := make([][]string, 0, len(evals))
				for _, ev := range evals {
					evalRows = append(evalRows, []string{
						ev.Architecture, ev.Partition, strconv.Itoa(ev.Samples),
						formatRatio(ev.Accuracy), formatRatio(ev.MacroF1), formatRatio(ev.LogLoss),
					})
				}
				return writeTable(out,
					[]string{"Model", "Partition", "Samples", "Accuracy", "Macro F1", "Log loss"},
					evalRows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
			})
		},
	}
}
