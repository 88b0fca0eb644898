package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/tmdb"
	"github.com/derickschaefer/marquee/internal/util"
)

var movieCmd = &cobra.Command{
	Use:   "movie",
	Short: "Look up movies on TMDB",
}

// ─── movie get ────────────────────────────────────────────────────────────────

var movieGetCmd = &cobra.Command{
	Use:   "get <MOVIE_ID>",
	Short: "Show the full record of a movie, keywords included",
	Example: `  marquee movie get 603
  marquee movie get 603 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := util.ParseMovieID(args[0])
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		start := time.Now()
		m, err := deps.Client.MovieDetail(cmd.Context(), id)
		if err != nil {
			return err
		}
		result := newResult(model.KindMovie, "movie get", m, 1, start)
		result.Stats.Calls = 1
		return writeResult(cmd, deps, result)
	},
}

// ─── movie similar ────────────────────────────────────────────────────────────

var movieSimilarRecommended bool

var movieSimilarCmd = &cobra.Command{
	Use:   "similar <MOVIE_ID>",
	Short: "List TMDB's similar (or recommended) movies for a movie",
	Long: `List the first page of TMDB's own "similar" listing for a movie, or its
"recommendations" listing with --recommended. These listings feed the
provider candidate strategy; they are shown unscored.`,
	Example: `  marquee movie similar 603
  marquee movie similar 603 --recommended --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := util.ParseMovieID(args[0])
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		start := time.Now()
		fetch, command := deps.Client.SimilarMovies, "movie similar"
		if movieSimilarRecommended {
			fetch, command = deps.Client.RecommendedMovies, "movie similar --recommended"
		}
		movies, err := fetch(cmd.Context(), id)
		if err != nil {
			return err
		}
		result := newResult(model.KindMovies, command, movies, len(movies), start)
		result.Stats.Calls = 1
		return writeResult(cmd, deps, result)
	},
}

// ─── genres ───────────────────────────────────────────────────────────────────

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List the TMDB movie genres",
	Long: `List the movie genres known to TMDB with their ids. The same-category
strategy queries these by id; names are what similarity compares.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		genres := tmdb.Genres()
		result := newResult(model.KindGenres, "genres", genres, len(genres), time.Now())
		return writeResult(cmd, deps, result)
	},
}

func init() {
	rootCmd.AddCommand(movieCmd)
	rootCmd.AddCommand(genresCmd)
	movieCmd.AddCommand(movieGetCmd)
	movieCmd.AddCommand(movieSimilarCmd)

	movieSimilarCmd.Flags().BoolVar(&movieSimilarRecommended, "recommended", false,
		"use the recommendations listing instead of similar")
}
