package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"authorship/internal/corpus"
	"authorship/internal/split"
	"authorship/internal/workflow"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Preview per-author partition sizes without writing artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireCorpus(); err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Split.Seed = seed
			}
			raw, _, err := corpus.LoadGlob(cfg.Corpus.Paths, workflow.ColumnsFromConfig(cfg.Corpus))
			if err != nil {
				return err
			}
			prepared, dropped, err := corpus.Prepare(raw)
			if err != nil {
				return err
			}
			sp, err := split.New(prepared, cfg.Split.Seed, cfg.Split.Proportions)
			if err != nil {
				return err
			}

			counts := sp.Counts(prepared)
			authors := make([]string, 0, len(counts))
			for author := range counts {
				authors = append(authors, author)
			}
			sort.Strings(authors)
			rows := make([][]string, 0, len(authors)+1)
			var total [3]int
			for _, author := range authors {
				c := counts[author]
				for i := range total {
					total[i] += c[i]
				}
				rows = append(rows, []string{author, strconv.Itoa(c[0]), strconv.Itoa(c[1]), strconv.Itoa(c[2])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(total[0]), strconv.Itoa(total[1]), strconv.Itoa(total[2])})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seed %d, proportions %v, %d documents (%d dropped)\n", cfg.Split.Seed, cfg.Split.Proportions, prepared.Len(), len(dropped))
			return writeTable(out,
				[]string{"Author", "Train", "Validation", "Test"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "Preview with a different split.seed")
	return cmd
}
