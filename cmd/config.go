package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/config"
	"github.com/derickschaefer/marquee/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage marquee configuration",
	Long:  `Read and write marquee configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Created %s\n", path)
		fmt.Fprintln(w, "  Edit it and set your api_key to get started.")
		fmt.Fprintln(w, "  Get a free key at: https://www.themoviedb.org/settings/api")
		return nil
	},
}

var configGetShowSecrets bool

// configView is the resolved configuration as printed by `config get`.
type configView struct {
	APIKey            string  `json:"api_key"`
	Format            string  `json:"default_format"`
	Timeout           string  `json:"timeout"`
	Concurrency       int     `json:"concurrency"`
	Rate              float64 `json:"rate"`
	BaseURL           string  `json:"base_url"`
	DBPath            string  `json:"db_path"`
	Language          string  `json:"language"`
	Region            string  `json:"region"`
	Strategy          string  `json:"strategy"`
	Limit             int     `json:"limit"`
	MinVoteCount      int     `json:"min_vote_count"`
	MinVoteAverage    float64 `json:"min_vote_average"`
	WeightContent     float64 `json:"weight_content"`
	WeightRating      float64 `json:"weight_rating"`
	WeightPopularity  float64 `json:"weight_popularity"`
	WeightYear        float64 `json:"weight_year"`
	MaxYearDifference int     `json:"max_year_difference"`
	MaxPages          int     `json:"max_pages"`
	MetricsFile       string  `json:"metrics_file"`
	ConfigFile        string  `json:"config_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.APIKey)
		if err != nil {
			return err
		}

		apiKey := cfg.RedactedAPIKey()
		if configGetShowSecrets {
			apiKey = cfg.APIKey
		}
		if cfg.APIKey == "" {
			apiKey = "(not set)"
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		strategy := cfg.Strategy
		if strategy == "" {
			strategy = candidate.DefaultKind.String()
		}

		v := configView{
			APIKey:            apiKey,
			Format:            cfg.Format,
			Timeout:           cfg.Timeout.String(),
			Concurrency:       cfg.Concurrency,
			Rate:              cfg.Rate,
			BaseURL:           cfg.BaseURL,
			DBPath:            cfg.DBPath,
			Language:          cfg.Language,
			Region:            cfg.Region,
			Strategy:          strategy,
			Limit:             cfg.Limit,
			MinVoteCount:      cfg.MinVoteCount,
			MinVoteAverage:    cfg.MinVoteAverage,
			WeightContent:     cfg.Weights.Content,
			WeightRating:      cfg.Weights.Rating,
			WeightPopularity:  cfg.Weights.Popularity,
			WeightYear:        cfg.Weights.Year,
			MaxYearDifference: cfg.MaxYearDifference,
			MaxPages:          cfg.MaxPages,
			MetricsFile:       cfg.MetricsFile,
			ConfigFile:        src,
		}

		if resolveFormat(cfg.Format) == render.FormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		printKVTable(cmd.OutOrStdout(), [][]string{
			{"api_key", v.APIKey},
			{"default_format", v.Format},
			{"timeout", v.Timeout},
			{"concurrency", strconv.Itoa(v.Concurrency)},
			{"rate", fmt.Sprintf("%.1f req/s", v.Rate)},
			{"base_url", v.BaseURL},
			{"db_path", v.DBPath},
			{"language", v.Language},
			{"region", v.Region},
			{"strategy", v.Strategy},
			{"limit", strconv.Itoa(v.Limit)},
			{"min_vote_count", strconv.Itoa(v.MinVoteCount)},
			{"min_vote_average", fmt.Sprintf("%.1f", v.MinVoteAverage)},
			{"weights", fmt.Sprintf("content=%.2f rating=%.2f popularity=%.2f year=%.2f",
				v.WeightContent, v.WeightRating, v.WeightPopularity, v.WeightYear)},
			{"max_year_difference", strconv.Itoa(v.MaxYearDifference)},
			{"max_pages", strconv.Itoa(v.MaxPages)},
			{"metrics_file", v.MetricsFile},
			{"config_file", v.ConfigFile},
		})
		return nil
	},
}

// configSetters maps each settable key to a function applying a string
// value to the on-disk config.
var configSetters = map[string]func(f *config.File, val string) error{
	"api_key":        func(f *config.File, v string) error { f.APIKey = v; return nil },
	"default_format": func(f *config.File, v string) error { f.DefaultFormat = v; return nil },
	"timeout":        func(f *config.File, v string) error { f.Timeout = v; return nil },
	"base_url":       func(f *config.File, v string) error { f.BaseURL = v; return nil },
	"db_path":        func(f *config.File, v string) error { f.DBPath = v; return nil },
	"language":       func(f *config.File, v string) error { f.Language = v; return nil },
	"region":         func(f *config.File, v string) error { f.Region = strings.ToUpper(v); return nil },
	"metrics_file":   func(f *config.File, v string) error { f.MetricsFile = v; return nil },
	"strategy": func(f *config.File, v string) error {
		k, err := candidate.ParseKind(v)
		if err != nil {
			return err
		}
		f.Strategy = k.String()
		return nil
	},
	"concurrency":         intSetter("concurrency", func(f *config.File, n int) { f.Concurrency = n }),
	"limit":               intSetter("limit", func(f *config.File, n int) { f.Limit = n }),
	"max_year_difference": intSetter("max_year_difference", func(f *config.File, n int) { f.MaxYearDifference = n }),
	"max_pages":           intSetter("max_pages", func(f *config.File, n int) { f.MaxPages = n }),
	"min_vote_count":      intSetter("min_vote_count", func(f *config.File, n int) { f.MinVoteCount = &n }),
	"rate":                floatSetter("rate", func(f *config.File, x float64) { f.Rate = x }),
	"min_vote_average":    floatSetter("min_vote_average", func(f *config.File, x float64) { f.MinVoteAverage = x }),
	"weights.content":     floatSetter("weights.content", func(f *config.File, x float64) { weights(f).Content = &x }),
	"weights.rating":      floatSetter("weights.rating", func(f *config.File, x float64) { weights(f).Rating = &x }),
	"weights.popularity":  floatSetter("weights.popularity", func(f *config.File, x float64) { weights(f).Popularity = &x }),
	"weights.year":        floatSetter("weights.year", func(f *config.File, x float64) { weights(f).Year = &x }),
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  marquee config set api_key abc123
  marquee config set strategy same_category
  marquee config set weights.popularity 0`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return configKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if key == "format" {
			key = "default_format"
		}
		set, ok := configSetters[key]
		if !ok {
			return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(configKeys(), ", "))
		}

		// Load existing file or start from template
		path := config.DefaultConfigFile
		f := config.Template()
		existing, err := config.ReadFile(path)
		switch {
		case err == nil:
			f = *existing
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}

		if err := set(&f, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show API key in plain text")
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intSetter(key string, apply func(*config.File, int)) func(*config.File, string) error {
	return func(f *config.File, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		apply(f, n)
		return nil
	}
}

func floatSetter(key string, apply func(*config.File, float64)) func(*config.File, string) error {
	return func(f *config.File, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil || x < 0 {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
		apply(f, x)
		return nil
	}
}

func weights(f *config.File) *config.WeightsFile {
	if f.Weights == nil {
		f.Weights = &config.WeightsFile{}
	}
	return f.Weights
}

// printKVTable renders a two-column key/value listing with aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
