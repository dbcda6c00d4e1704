package main

import (
	"fmt"

	"github.com/nvandessel/biolattice/internal/analysis"
	"github.com/nvandessel/biolattice/internal/constants"
	"github.com/nvandessel/biolattice/internal/export"
	"github.com/nvandessel/biolattice/internal/store"
	"github.com/spf13/cobra"
)

type statsResult struct {
	RunID   string                 `json:"run_id"`
	Steps   []analysis.StepStats   `json:"steps"`
	Entropy []analysis.EntropyRow  `json:"entropy,omitempty"`
	Final   *analysis.Summary      `json:"final,omitempty"`
	Domains map[string]domainStats `json:"domains,omitempty"`
}

type domainStats struct {
	Count   int `json:"count"`
	Largest int `json:"largest"`
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <run-id>",
		Short: "Show per-step statistics of a recorded run",
		Long: `Load the frames of a run from the database and report, per recorded
step, the average voltage, spin-up ratio and differentiated cell count.

Examples:
  biolattice stats 3f2a... --db runs.db
  biolattice stats 3f2a... --db runs.db --entropy --bins 20
  biolattice stats 3f2a... --db runs.db --domains --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath, _ := cmd.Flags().GetString("db")
			withEntropy, _ := cmd.Flags().GetBool("entropy")
			withDomains, _ := cmd.Flags().GetBool("domains")
			bins, _ := cmd.Flags().GetInt("bins")

			dbPath, err := store.ResolveDatabasePath(dbPath)
			if err != nil {
				return err
			}
			db, err := store.OpenSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			frames, err := db.LoadFrames(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load run %s: %w", args[0], err)
			}

			result := statsResult{RunID: args[0], Steps: analysis.TrackStats(frames)}
			if withEntropy {
				result.Entropy = analysis.TrackEntropy(frames, bins)
			}
			if withDomains && len(frames) > 0 {
				g := export.BuildGraph(frames[len(frames)-1])
				summary := analysis.Summarize(g)
				result.Final = &summary
				result.Domains = map[string]domainStats{
					"up":   domains(g, 1),
					"down": domains(g, 0),
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printStats(cmd, result)
			return nil
		},
	}

	cmd.Flags().String("db", "", "SQLite database holding the run (default ~/.biolattice/runs.db)")
	cmd.Flags().Bool("entropy", false, "Include per-channel histogram entropy")
	cmd.Flags().Int("bins", constants.DefaultEntropyBins, "Histogram bins for entropy")
	cmd.Flags().Bool("domains", false, "Include spin domains of the last frame")

	return cmd
}

func domains(g *export.Graph, spin uint8) domainStats {
	ds := analysis.SpinDomains(g, spin)
	s := domainStats{Count: len(ds)}
	if len(ds) > 0 {
		s.Largest = len(ds[0])
	}
	return s
}

func printStats(cmd *cobra.Command, r statsResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%d frames)\n\n", r.RunID, len(r.Steps))
	fmt.Fprintf(out, "%8s  %11s  %10s  %14s\n", "STEP", "AVG VOLTAGE", "SPIN RATIO", "DIFFERENTIATED")
	for _, s := range r.Steps {
		fmt.Fprintf(out, "%8d  %11.4f  %10.4f  %14d\n", s.Step, s.AvgVoltage, s.SpinRatio, s.Differentiated)
	}

	if len(r.Entropy) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%8s  %-8s  %8s  %8s  %10s\n", "STEP", "CHANNEL", "ENTROPY", "MEAN", "VARIANCE")
		for _, e := range r.Entropy {
			fmt.Fprintf(out, "%8d  %-8s  %8.4f  %8.4f  %10.6f\n", e.Step, e.Name, e.Entropy, e.Mean, e.Variance)
		}
	}

	if r.Final != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Final step %d: %d nodes, coherence %.3f\n", r.Final.Step, r.Final.Nodes, r.Final.Coherence)
		for _, spin := range []string{"up", "down"} {
			d := r.Domains[spin]
			fmt.Fprintf(out, "  spin %-4s domains: %d (largest %d)\n", spin, d.Count, d.Largest)
		}
	}
}
