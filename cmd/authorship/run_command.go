package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"authorship/internal/config"
	"authorship/internal/failure"
	"authorship/internal/ledger"
	"authorship/internal/model"
	"authorship/internal/stage"
	"authorship/internal/workflow"
)

type stageFlag struct {
	name  stage.Name
	value bool
	field func(*config.Stages) *bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := []*stageFlag{
		{name: stage.EDA, field: func(s *config.Stages) *bool { return &s.EnableEDA }},
		{name: stage.Preprocessing, field: func(s *config.Stages) *bool { return &s.EnablePreprocessing }},
		{name: stage.FeatureEngineering, field: func(s *config.Stages) *bool { return &s.EnableFeatureEngineering }},
		{name: stage.Training, field: func(s *config.Stages) *bool { return &s.EnableTraining }},
		{name: stage.Evaluation, field: func(s *config.Stages) *bool { return &s.EnableEvaluation }},
	}
	var models []string
	var seed int64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline; enabled stages recompute, disabled stages load cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, f := range flags {
				if cmd.Flags().Changed(flagName(f.name)) {
					*f.field(&cfg.Stages) = f.value
				}
			}
			if cmd.Flags().Changed("model") {
				if err := selectModels(&cfg.Models, models); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("seed") {
				cfg.Split.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return ctx.withLedger(func(db *ledger.Store) error {
				mgr, _, err := ctx.newManager(db)
				if err != nil {
					return err
				}
				outcome, runErr := mgr.Run(cmd.Context())
				if outcome != nil {
					if jsonOutput {
						if err := writeJSON(cmd, outcome); err != nil {
							return err
						}
					} else if err := printOutcome(cmd, outcome); err != nil {
						return err
					}
				}
				if runErr != nil {
					return fmt.Errorf("%s", failure.Describe(runErr))
				}
				return nil
			})
		},
	}

	for _, f := range flags {
		cmd.Flags().BoolVar(&f.value, flagName(f.name), false, fmt.Sprintf("Recompute the %s stage (false loads its cached artifacts)", f.name))
	}
	cmd.Flags().StringSliceVar(&models, "model", nil, "Architectures to train and evaluate (baseline, bag, cnn, rnn)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Override split.seed")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run outcome as JSON")
	return cmd
}

func flagName(name stage.Name) string {
	return "enable-" + strings.ReplaceAll(string(name), "_", "-")
}

func selectModels(m *config.Models, names []string) error {
	m.EnableBaseline, m.EnableBag, m.EnableCNN, m.EnableRNN = false, false, false, false
	for _, name := range names {
		arch, err := model.ParseArchitecture(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		switch arch {
		case model.Baseline:
			m.EnableBaseline = true
		case model.Bag:
			m.EnableBag = true
		case model.CNN:
			m.EnableCNN = true
		case model.RNN:
			m.EnableRNN = true
		}
	}
	return nil
}

func printOutcome(cmd *cobra.Command, outcome *workflow.Outcome) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", outcome.Report.RunID)

	rows := make([][]string, 0, len(stage.Order()))
	for _, name := range stage.Order() {
		res, ok := outcome.Report.Result(name)
		if !ok {
			rows = append(rows, []string{string(name), string(stage.StatusNotRun), "-", "-"})
			continue
		}
		names := make([]string, 0, len(res.Artifacts))
		for _, ref := range res.Artifacts {
			names = append(names, ref.Name+"@"+shortFP(ref.Fingerprint))
		}
		rows = append(rows, []string{string(name), string(res.Status), strings.Join(names, ", "), formatDuration(res.Duration)})
	}
	if err := writeTable(out, []string{"Stage", "Status", "Artifacts", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}); err != nil {
		return err
	}

	if len(outcome.Dropped) > 0 {
		fmt.Fprintf(out, "Dropped %d documents with empty text\n", len(outcome.Dropped))
	}
	if len(outcome.Evaluations) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	evalRows := make([][]string, 0, 2*len(outcome.Evaluations))
	for _, ev := range outcome.Evaluations {
		for _, part := range []struct {
			name string
			m    model.Metrics
		}{{"validation", ev.Validation}, {"test", ev.Test}} {
			evalRows = append(evalRows, []string{
				string(ev.Architecture),
				part.name,
				strconv.Itoa(part.m.Samples),
				formatRatio(part.m.Accuracy),
				formatRatio(part.m.MacroF1),
				formatRatio(part.m.LogLoss),
			})
		}
	}
	return writeTable(out,
		[]string{"Model", "Partition", "Samples", "Accuracy", "Macro F1", "Log loss"},
		evalRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
