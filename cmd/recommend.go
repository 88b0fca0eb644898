package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/analyze"
	"github.com/derickschaefer/marquee/internal/app"
	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/pipeline"
	"github.com/derickschaefer/marquee/internal/recommend"
	"github.com/derickschaefer/marquee/internal/util"
)

var (
	recStrategy    string
	recLimit       int
	recMinVotes    int
	recStdin       bool
	recYear        int
	recTop         int
	recPages       int
	recStore       bool
	recMetricsFile string
	recWContent    float64
	recWRating     float64
	recWPopularity float64
	recWYear       float64
	recMaxYearDiff int
	recMaxPages    int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [MOVIE_ID...]",
	Short: "Recommend movies similar to one or more seed movies",
	Long: `Recommend movies similar to each seed movie.

For every seed, candidates are gathered with the selected strategy, enriched
with full details, filtered by vote count, scored against the seed and
ranked by score (ties broken by lower id).

Strategies:
  provider       TMDB similar and recommended listings (alias: tmdb_api)
  same_period    the most voted movies of the seed's release year (alias: same_year)
  same_category  movies of the seed's year sharing its first genres (alias: same_genre)
  hybrid         all of the above plus nearby years (default)

Seeds may be given as arguments, read from stdin (--stdin, one id or JSON
object per line) or taken from the most voted movies of a year (--year).
A seed that cannot be found is reported as a warning; the others still run.`,
	Example: `  marquee recommend 603
  marquee recommend 603 680 --limit 5 --strategy provider
  marquee recommend --year 1999 --top 10 --format csv --out pairs.csv
  marquee discover --year 2010 --format jsonl | marquee recommend --stdin --store
  marquee recommend 27205 --w-content 0.6 --w-popularity 0 --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		cfg := deps.Config
		flags := cmd.Flags()
		if flags.Changed("strategy") {
			cfg.Strategy = recStrategy
		}
		if flags.Changed("limit") {
			cfg.Limit = recLimit
		}
		if flags.Changed("min-votes") {
			cfg.MinVoteCount = recMinVotes
		}
		if flags.Changed("w-content") {
			cfg.Weights.Content = recWContent
		}
		if flags.Changed("w-rating") {
			cfg.Weights.Rating = recWRating
		}
		if flags.Changed("w-popularity") {
			cfg.Weights.Popularity = recWPopularity
		}
		if flags.Changed("w-year") {
			cfg.Weights.Year = recWYear
		}
		if flags.Changed("max-year-diff") {
			cfg.MaxYearDifference = recMaxYearDiff
		}
		if flags.Changed("max-pages") {
			cfg.MaxPages = recMaxPages
		}
		if flags.Changed("metrics-file") {
			cfg.MetricsFile = recMetricsFile
		}
		if err := cfg.ValidateEngine(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		start := time.Now()
		ids, extraCalls, err := collectSeedIDs(ctx, cmd, deps, args)
		if err != nil {
			return err
		}

		seeds, warnings, seedCalls := fetchSeeds(ctx, deps, ids)
		if len(seeds) == 0 {
			return fmt.Errorf("no seed movie could be loaded:\n  %s", strings.Join(warnings, "\n  "))
		}

		engine, err := deps.Engine()
		if err != nil {
			return err
		}
		engine.OnStage(func(seed model.Movie, stage recommend.Stage) {
			slog.Debug("pipeline stage", "seed", seed.ID, "title", seed.Title, "stage", stage.String())
		})

		run, err := engine.Recommend(ctx, seeds, recommend.Options{
			Limit:        cfg.Limit,
			Strategy:     cfg.Strategy,
			MinVoteCount: cfg.MinVoteCount,
		})
		if err != nil {
			if run != nil && errors.Is(err, ctx.Err()) {
				return fmt.Errorf("interrupted after %d of %d seeds: %w", len(run.Reports), len(seeds), err)
			}
			return err
		}

		if recStore {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			if err := deps.Store.PutRun(run); err != nil {
				return fmt.Errorf("saving run: %w", err)
			}
			slog.Info("run saved", "id", run.ID, "db", deps.Store.Path())
		}
		if cfg.MetricsFile != "" {
			if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				warnings = append(warnings, err.Error())
			}
		}

		result := newResult(model.KindRecommendations, "recommend", run, len(run.Pairs()), start)
		result.Warnings = append(warnings, run.Warnings...)
		result.Stats.Calls = run.Calls + seedCalls + extraCalls

		if err := writeResult(cmd, deps, result); err != nil {
			return err
		}
		if cfg.Verbose && !cfg.Quiet {
			printRunSummary(cmd, run, deps.Client.BreakerState())
		}
		return nil
	},
}

// collectSeedIDs merges seed ids from arguments, stdin and --year, keeping
// first-seen order. extraCalls counts the listing pages requested for --year.
func collectSeedIDs(ctx context.Context, cmd *cobra.Command, deps *app.Deps, args []string) (ids []int, extraCalls int, err error) {
	seen := make(map[int]bool)
	add := func(list []int) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	argIDs, err := util.ParseMovieIDs(args)
	if err != nil {
		return nil, 0, err
	}
	add(argIDs)

	if recStdin {
		if in, ok := cmd.InOrStdin().(*os.File); ok && pipeline.IsTerminal(in) {
			slog.Warn("--stdin set but stdin is a terminal; waiting for input")
		}
		stdinIDs, err := pipeline.ReadSeedIDs(cmd.InOrStdin())
		if err != nil {
			return nil, 0, fmt.Errorf("reading seeds from stdin: %w", err)
		}
		add(stdinIDs)
	}

	if recYear != 0 {
		if recTop <= 0 {
			return nil, 0, fmt.Errorf("--top must be positive, got %d", recTop)
		}
		movies, pages, err := deps.Client.TopMoviesByYear(ctx, recYear, recTop, recPages)
		extraCalls = pages
		if err != nil {
			return nil, extraCalls, fmt.Errorf("listing movies of %d: %w", recYear, err)
		}
		yearIDs := make([]int, len(movies))
		for i, m := range movies {
			yearIDs[i] = m.ID
		}
		add(yearIDs)
	}

	if len(ids) == 0 {
		return nil, extraCalls, fmt.Errorf("no seed movies: pass MOVIE_ID arguments, --stdin or --year")
	}
	return ids, extraCalls, nil
}

// printRunSummary writes the score distribution and run counters to stderr.
func printRunSummary(cmd *cobra.Command, run *model.Run, breaker string) {
	s := analyze.Summarize("score", run.Scores())
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "run %s • strategy %s • %d calls • %d degraded • %d enrich failures • breaker %s\n",
		run.ID, run.Strategy, run.Calls, run.Degraded, run.EnrichFailures, breaker)
	if s.Count > 0 {
		fmt.Fprintf(w, "scores: n=%d min=%.3f median=%.3f mean=%.3f max=%.3f\n",
			s.Count, s.Min, s.Median, s.Mean, s.Max)
	}
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()
	f.StringVar(&recStrategy, "strategy", "",
		"candidate strategy: "+strings.Join(candidate.KindNames(), "|")+" (default: hybrid)")
	f.IntVar(&recLimit, "limit", 0, "recommendations per seed (default: 10)")
	f.IntVar(&recMinVotes, "min-votes", 0, "drop candidates with fewer votes (default: 100)")
	f.BoolVar(&recStdin, "stdin", false, "read seed ids from stdin")
	f.IntVar(&recYear, "year", 0, "use the most voted movies of this year as seeds")
	f.IntVar(&recTop, "top", 10, "number of seeds taken with --year")
	f.IntVar(&recPages, "pages", 5, "max listing pages read with --year")
	f.BoolVar(&recStore, "store", false, "save the run to the local database")
	f.StringVar(&recMetricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	f.Float64Var(&recWContent, "w-content", 0, "weight of genre and keyword overlap (default: 0.4)")
	f.Float64Var(&recWRating, "w-rating", 0, "weight of rating closeness (default: 0.3)")
	f.Float64Var(&recWPopularity, "w-popularity", 0, "weight of the popularity factor (default: 0.2)")
	f.Float64Var(&recWYear, "w-year", 0, "weight of release year closeness (default: 0.1)")
	f.IntVar(&recMaxYearDiff, "max-year-diff", 0, "years apart at which year similarity reaches zero (default: 20)")
	f.IntVar(&recMaxPages, "max-pages", 0, "pages read from a same-period listing per seed (default: 1)")

	_ = recommendCmd.RegisterFlagCompletionFunc("strategy", cobra.FixedCompletions(candidate.KindNames(), cobra.ShellCompDirectiveNoFileComp))
}
