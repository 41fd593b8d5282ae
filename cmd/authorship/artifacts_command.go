package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"authorship/internal/artifact"
	"authorship/internal/artifactschema"
	"authorship/internal/ledger"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artifacts",
		Aliases: []string{"artifact"},
		Short:   "Inspect and maintain the artifact store",
	}
	cmd.AddCommand(newArtifactsListCommand(ctx))
	cmd.AddCommand(newArtifactsStatsCommand(ctx))
	cmd.AddCommand(newArtifactsPruneCommand(ctx))
	cmd.AddCommand(newArtifactsSchemaCommand())
	return cmd
}

func newArtifactsListCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if kind != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if string(e.Kind) == kind {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			if jsonOutput {
				if entries == nil {
					entries = []artifact.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No artifacts cached")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Name, shortFP(e.Fingerprint), string(e.Kind), formatBytes(e.SizeBytes), formatTime(e.CreatedAt)})
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"Name", "Fingerprint", "Kind", "Size", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list artifacts of this kind")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newArtifactsStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show artifact store usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store:     %s\n", store.Root())
			fmt.Fprintf(out, "Artifacts: %d (%d names)\n", stats.Entries, stats.Names)
			fmt.Fprintf(out, "Size:      %s\n", formatBytes(stats.TotalBytes))
			fmt.Fprintf(out, "Free:      %s (%.1f%%)\n", formatBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)
			if len(stats.ByKind) == 0 {
				return nil
			}
			kinds := make([]string, 0, len(stats.ByKind))
			for k := range stats.ByKind {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			rows := make([][]string, 0, len(kinds))
			for _, k := range kinds {
				rows = append(rows, []string{k, formatBytes(stats.ByKind[artifact.Kind(k)])})
			}
			return writeTable(out, []string{"Kind", "Size"}, rows, []columnAlignment{alignLeft, alignRight})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newArtifactsPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old fingerprints, keeping the newest per name and everything the current plan needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(db *ledger.Store) error {
				mgr, store, err := ctx.newManager(db)
				if err != nil {
					return err
				}
				protect := map[string]string{}
				if db != nil {
					latest, err := db.LatestArtifacts(cmd.Context())
					if err != nil {
						return err
					}
					protect = latest
				}
				if plan, err := mgr.Plan(); err == nil {
					for name, fp := range plan.All() {
						if _, ok := protect[name]; !ok {
							protect[name] = fp
						}
					}
				}

				unlock, err := store.Lock()
				if err != nil {
					return err
				}
				defer func() { _ = unlock() }()

				result, err := store.Prune(cmd.Context(), keep, protect)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, e := range result.Removed {
					fmt.Fprintf(out, "removed %s@%s\n", e.Name, shortFP(e.Fingerprint))
				}
				fmt.Fprintf(out, "Pruned %d artifacts (%s), %d stale temp files\n",
					len(result.Removed), formatBytes(result.FreedBytes), result.TempFiles)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 1, "Fingerprints to keep per artifact name")
	return cmd
}

func newArtifactsSchemaCommand() *cobra.Command {
	kinds := make([]string, 0, len(artifact.Kinds()))
	for _, k := range artifact.Kinds() {
		kinds = append(kinds, string(k))
	}
	return &cobra.Command{
		Use:         "schema [kind]",
		Short:       "Print the JSON Schema of an artifact payload kind",
		Long:        "Known kinds: " + strings.Join(kinds, ", "),
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				rows := make([][]string, 0, len(kinds))
				for i, k := range kinds {
					rows = append(rows, []string{strconv.Itoa(i + 1), k})
				}
				return writeTable(cmd.OutOrStdout(), []string{"#", "Kind"}, rows, []columnAlignment{alignRight, alignLeft})
			}
			if args[0] == "envelope" {
				return writeJSON(cmd, artifactschema.Envelope())
			}
			data, err := artifactschema.Marshal(artifact.Kind(args[0]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
