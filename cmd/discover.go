package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/tmdb"
)

var (
	discoverYear  int
	discoverTop   int
	discoverPages int
	discoverGenre string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the most voted movies of a year",
	Long: `List the most voted movies released in a year, optionally restricted to
one genre. The listing honours the configured language, region and minimum
vote filters.

Output as jsonl and pipe it into 'marquee recommend --stdin' to use the
listed movies as seeds.`,
	Example: `  marquee discover --year 1999
  marquee discover --year 2010 --genre "Science Fiction" --top 5
  marquee discover --year 1994 --format jsonl | marquee recommend --stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if discoverYear <= 0 {
			return fmt.Errorf("--year is required")
		}
		if discoverTop <= 0 || discoverPages <= 0 {
			return fmt.Errorf("--top and --pages must be positive")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		start := time.Now()
		var movies []model.PartialMovie
		calls := 1
		if discoverGenre != "" {
			genre, ok := tmdb.GenreByName(discoverGenre)
			if !ok {
				return fmt.Errorf("unknown genre %q (see 'marquee genres')", discoverGenre)
			}
			page, err := deps.Client.MoviesByYearAndGenre(cmd.Context(), discoverYear, genre, 1)
			if err != nil {
				return err
			}
			movies = page.Results
			if len(movies) > discoverTop {
				movies = movies[:discoverTop]
			}
		} else {
			movies, calls, err = deps.Client.TopMoviesByYear(cmd.Context(), discoverYear, discoverTop, discoverPages)
			if err != nil {
				return err
			}
		}

		command := fmt.Sprintf("discover --year %d", discoverYear)
		result := newResult(model.KindMovies, command, movies, len(movies), start)
		result.Stats.Calls = calls
		if len(movies) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("no movies found for %d", discoverYear))
		}
		return writeResult(cmd, deps, result)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	f := discoverCmd.Flags()
	f.IntVar(&discoverYear, "year", 0, "release year (required)")
	f.IntVar(&discoverTop, "top", 20, "number of movies to list")
	f.IntVar(&discoverPages, "pages", 5, "max listing pages to read")
	f.StringVar(&discoverGenre, "genre", "", "restrict to one genre by name")

	_ = discoverCmd.RegisterFlagCompletionFunc("genre", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, g := range tmdb.Genres() {
			names = append(names, g.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}
