package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/analyze"
	"github.com/derickschaefer/marquee/internal/chart"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse recommendation runs saved in the local database",
	Long: `Commands for saved recommendation runs.

Save a run with 'marquee recommend --store'. Runs are addressed by id or by
any unique prefix of it.`,
}

// ─── runs list ────────────────────────────────────────────────────────────────

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Example: `  marquee runs list
  marquee runs list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		infos, err := deps.Store.ListRuns()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if len(infos) == 0 && resolveFormat(deps.Config.Format) == "table" {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: marquee recommend <MOVIE_ID...> --store")
			return nil
		}
		return writeResult(cmd, deps, newResult(model.KindRuns, "runs list", infos, len(infos), start))
	},
}

// ─── runs show ────────────────────────────────────────────────────────────────

var runsShowCmd = &cobra.Command{
	Use:   "show <RUN_ID>",
	Short: "Show the recommendations of a saved run",
	Example: `  marquee runs show 6f1c2a9e
  marquee runs show 6f1c2a9e --format csv --out pairs.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		run, err := getRun(deps.Store, args[0])
		if err != nil {
			return err
		}
		result := newResult(model.KindRecommendations, "runs show "+run.ID, run, len(run.Pairs()), start)
		result.Warnings = run.Warnings
		return writeResult(cmd, deps, result)
	},
}

// ─── runs analyze ─────────────────────────────────────────────────────────────

var runsAnalyzeTop int

var runsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <RUN_ID>",
	Short: "Summarise score distributions and shared genres of a saved run",
	Long: `Summarise a saved run: count, mean, spread and quartiles of the overall
score and of every similarity factor, plus the genres most often shared
between seeds and their recommendations.`,
	Example: `  marquee runs analyze 6f1c2a9e
  marquee runs analyze 6f1c2a9e --top 5 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		run, err := getRun(deps.Store, args[0])
		if err != nil {
			return err
		}
		summary := analyze.AnalyzeRun(run, runsAnalyzeTop)
		return writeResult(cmd, deps, newResult(model.KindAnalysis, "runs analyze "+run.ID, &summary, summary.Pairs, start))
	},
}

// ─── runs chart ───────────────────────────────────────────────────────────────

var (
	runsChartSeed  int
	runsChartBins  int
	runsChartWidth int
)

var runsChartCmd = &cobra.Command{
	Use:   "chart <RUN_ID>",
	Short: "Draw the scores of a saved run in the terminal",
	Long: `Draw a histogram of every recommendation score in a saved run, or with
--seed the ranked scores of one seed's recommendations as bars.`,
	Example: `  marquee runs chart 6f1c2a9e
  marquee runs chart 6f1c2a9e --bins 20
  marquee runs chart 6f1c2a9e --seed 603`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		run, err := getRun(deps.Store, args[0])
		if err != nil {
			return err
		}
		out, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		if runsChartSeed == 0 {
			return chart.Histogram(out, "Scores of run "+run.ID, run.Scores(), chart.HistogramOptions{
				Bins:  runsChartBins,
				Min:   0,
				Max:   1,
				Width: runsChartWidth,
			})
		}
		for _, rep := range run.Reports {
			if rep.Seed.ID != runsChartSeed {
				continue
			}
			items := make([]chart.Item, len(rep.Recommendations))
			for i, rec := range rep.Recommendations {
				items[i] = chart.Item{Label: rec.Movie.Title, Value: rec.Similarity.Score}
			}
			if len(items) == 0 {
				return fmt.Errorf("seed %d has no recommendations in run %s", runsChartSeed, run.ID)
			}
			return chart.Bar(out, fmt.Sprintf("Recommendations for %s [%d]", rep.Seed.Title, rep.Seed.ID), items,
				chart.BarOptions{Width: runsChartWidth, Max: 1})
		}
		return fmt.Errorf("seed %d is not part of run %s", runsChartSeed, run.ID)
	},
}

// ─── runs delete ──────────────────────────────────────────────────────────────

var runsDeleteCmd = &cobra.Command{
	Use:     "delete <RUN_ID>",
	Short:   "Delete a saved run",
	Example: `  marquee runs delete 6f1c2a9e`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		id, err := deps.Store.DeleteRun(args[0])
		if err != nil {
			return runLookupError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsAnalyzeCmd)
	runsCmd.AddCommand(runsChartCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsAnalyzeCmd.Flags().IntVar(&runsAnalyzeTop, "top", 10, "number of shared genres to list")

	runsChartCmd.Flags().IntVar(&runsChartSeed, "seed", 0, "chart the ranked scores of this seed instead of the histogram")
	runsChartCmd.Flags().IntVar(&runsChartBins, "bins", 10, "histogram bins over the score range 0-1")
	runsChartCmd.Flags().IntVar(&runsChartWidth, "width", 0, "chart width in characters (default: $COLUMNS or 80)")
}

func getRun(s *store.Store, id string) (*model.Run, error) {
	run, err := s.GetRun(id)
	if err != nil {
		return nil, runLookupError(err)
	}
	return run, nil
}

// runLookupError adds a hint to the store's lookup errors.
func runLookupError(err error) error {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		return fmt.Errorf("%w (see 'marquee runs list')", err)
	case errors.Is(err, store.ErrAmbiguousID):
		return fmt.Errorf("%w (use a longer prefix)", err)
	}
	return err
}
