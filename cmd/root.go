// Package cmd implements the marquee CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/app"
	"github.com/derickschaefer/marquee/internal/config"
	"github.com/derickschaefer/marquee/internal/logging"
	"github.com/derickschaefer/marquee/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	APIKey      string
	Format      string
	Out         string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
	LogFormat   string
}

// rootCmd is the base command. Running `marquee` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Movie recommendations from The Movie Database (TMDB)",
	Long: `marquee recommends movies similar to the ones you give it.

For each seed movie it gathers candidates from TMDB (suggested titles,
movies from the same period and from the same genres), fetches their full
details, and ranks them by genre, keyword, rating, popularity and release
year similarity, with a short explanation for every match.

This product uses the TMDB API but is not endorsed or certified by TMDB.

Quick start:
  marquee config init                 # create a config.json for your API key
  marquee movie get 603               # look up The Matrix
  marquee recommend 603 --limit 5     # five movies like it
  marquee discover --year 1999 --top 20 --format jsonl | marquee recommend --stdin`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, globalFlags.LogFormat, logging.Level(globalFlags.Debug, globalFlags.Quiet))
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.APIKey)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.APIKey, "api-key", "",
		"TMDB API key or read access token (overrides env TMDB_API_KEY and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel requests for batch lookups (default: 8)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 20)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing, call counts and score summary after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and pipeline stages (API key redacted)")
	pf.StringVar(&globalFlags.LogFormat, "log-format", logging.FormatConsole,
		"log output on stderr: console|json")

	_ = rootCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(render.Formats, cobra.ShellCompDirectiveNoFileComp))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{logging.FormatConsole, logging.FormatJSON}, cobra.ShellCompDirectiveNoFileComp))
}
