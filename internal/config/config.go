// Package config handles loading and resolving marquee configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--api-key, --strategy, ...)
//  2. Environment variables TMDB_API_KEY, TMDB_API_BASE_URL, MARQUEE_DB_PATH
//  3. A .env file in the current working directory
//  4. config.json in the current working directory
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/similarity"
	"github.com/derickschaefer/marquee/internal/tmdb"
	"github.com/derickschaefer/marquee/internal/util"
)

const (
	DefaultConfigFile   = "config.json"
	DefaultEnvFile      = ".env"
	DefaultFormat       = "table"
	DefaultTimeout      = 30 * time.Second
	DefaultConcurrency  = 8
	DefaultRate         = 20.0
	DefaultBaseURL      = "https://api.themoviedb.org/3/"
	DefaultLanguage     = "en-US"
	DefaultLimit        = 10
	DefaultMinVoteCount = 100
	EnvAPIKey           = "TMDB_API_KEY"
	EnvBaseURL          = "TMDB_API_BASE_URL"
	EnvDBPath           = "MARQUEE_DB_PATH"
)

// WeightsFile is the on-disk form of the scoring weights. Nil fields keep
// the defaults.
type WeightsFile struct {
	Content    *float64 `json:"content,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Popularity *float64 `json:"popularity,omitempty"`
	Year       *float64 `json:"year,omitempty"`
}

// File is the on-disk representation of config.json.
type File struct {
	APIKey            string       `json:"api_key"`
	DefaultFormat     string       `json:"default_format"`
	Timeout           string       `json:"timeout"`
	Concurrency       int          `json:"concurrency"`
	Rate              float64      `json:"rate"`
	BaseURL           string       `json:"base_url"`
	DBPath            string       `json:"db_path"`
	Language          string       `json:"language,omitempty"`
	Region            string       `json:"region,omitempty"`
	Strategy          string       `json:"strategy,omitempty"`
	Limit             int          `json:"limit,omitempty"`
	MinVoteCount      *int         `json:"min_vote_count,omitempty"`
	MinVoteAverage    float64      `json:"min_vote_average,omitempty"`
	Weights           *WeightsFile `json:"weights,omitempty"`
	MaxYearDifference int          `json:"max_year_difference,omitempty"`
	MaxPages          int          `json:"max_pages,omitempty"`
	MetricsFile       string       `json:"metrics_file,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	APIKey      string
	Format      string        `validate:"oneof=table json jsonl csv tsv md"`
	Timeout     time.Duration `validate:"gt=0"`
	Concurrency int           `validate:"gte=1,lte=64"`
	Rate        float64       `validate:"gt=0"`
	BaseURL     string        `validate:"required,url"`
	DBPath      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Discovery filters
	Language       string
	Region         string
	MinVoteAverage float64 `validate:"gte=0,lte=10"`

	// Recommendation engine
	Strategy          string
	Limit             int                `validate:"gte=1,lte=100"`
	MinVoteCount      int                `validate:"gte=0"`
	Weights           similarity.Weights `validate:"-"` // checked by Scoring().Validate
	MaxYearDifference int
	MaxPages          int                `validate:"gte=0,lte=20"` // same-period listing pages; 0 = default
	MetricsFile       string

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load resolves configuration from all sources.
// flagAPIKey is the value of --api-key (empty string if not set).
func Load(flagAPIKey string) (*Config, error) {
	cfg := &Config{
		Format:            DefaultFormat,
		Timeout:           DefaultTimeout,
		Concurrency:       DefaultConcurrency,
		Rate:              DefaultRate,
		BaseURL:           DefaultBaseURL,
		Language:          DefaultLanguage,
		Strategy:          candidate.DefaultKind.String(),
		Limit:             DefaultLimit,
		MinVoteCount:      DefaultMinVoteCount,
		Weights:           similarity.DefaultWeights(),
		MaxYearDifference: similarity.DefaultConfig().MaxYearDifference,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Layer 2: .env, which never overrides variables already exported
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", DefaultEnvFile, err)
	}

	// Layer 3: environment variables
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Layer 4: CLI flag (highest priority)
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".marquee", "marquee.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if required fields are missing.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New(
			"API key not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        marquee --api-key YOUR_KEY ...\n" +
				"  2. Environment:     export TMDB_API_KEY=YOUR_KEY\n" +
				"  3. .env file:       TMDB_API_KEY=YOUR_KEY\n" +
				"  4. config.json:     {\"api_key\": \"YOUR_KEY\"}\n\n" +
				"Either a v3 API key or a v4 read access token works.\n" +
				"Get one at https://www.themoviedb.org/settings/api",
		)
	}
	return nil
}

// ValidateEngine checks every tunable setting and reports all problems at
// once.
func (c *Config) ValidateEngine() error {
	var merr util.MultiError
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				merr.Add(fmt.Errorf("%s: must satisfy %s=%s (got %v)",
					fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
		} else {
			merr.Add(err)
		}
	}
	if _, err := candidate.ParseKind(c.Strategy); err != nil {
		merr.Add(err)
	}
	if err := c.Scoring().Validate(); err != nil {
		merr.Add(err)
	}
	return merr.Err()
}

// Scoring returns the scorer configuration with the configured weights and
// year window.
func (c *Config) Scoring() similarity.Config {
	sc := similarity.DefaultConfig()
	sc.Weights = c.Weights
	sc.MaxYearDifference = c.MaxYearDifference
	return sc
}

// Selection returns the candidate selection bounds. Zero fields keep the
// candidate package defaults.
func (c *Config) Selection() candidate.Options {
	return candidate.Options{MaxPages: c.MaxPages}
}

// Discover returns the provider-side filters for discovery listings.
func (c *Config) Discover() tmdb.DiscoverOptions {
	opts := tmdb.DefaultDiscoverOptions()
	opts.Language = c.Language
	opts.Region = c.Region
	opts.MinVoteCount = c.MinVoteCount
	opts.MinVoteAverage = c.MinVoteAverage
	return opts
}

// RedactedAPIKey returns the API key with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return c.APIKey[:2] + "****" + c.APIKey[len(c.APIKey)-2:]
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses the config file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.Region != "" {
		cfg.Region = f.Region
	}
	if f.Strategy != "" {
		cfg.Strategy = f.Strategy
	}
	if f.Limit > 0 {
		cfg.Limit = f.Limit
	}
	if f.MinVoteCount != nil {
		cfg.MinVoteCount = *f.MinVoteCount
	}
	if f.MinVoteAverage > 0 {
		cfg.MinVoteAverage = f.MinVoteAverage
	}
	if f.MaxYearDifference > 0 {
		cfg.MaxYearDifference = f.MaxYearDifference
	}
	if f.MaxPages > 0 {
		cfg.MaxPages = f.MaxPages
	}
	if f.MetricsFile != "" {
		cfg.MetricsFile = f.MetricsFile
	}
	if w := f.Weights; w != nil {
		setIf(&cfg.Weights.Content, w.Content)
		setIf(&cfg.Weights.Rating, w.Rating)
		setIf(&cfg.Weights.Popularity, w.Popularity)
		setIf(&cfg.Weights.Year, w.Year)
	}
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `marquee config init`.
func Template() File {
	w := similarity.DefaultWeights()
	minVotes := DefaultMinVoteCount
	return File{
		APIKey:        "",
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		BaseURL:       DefaultBaseURL,
		Language:      DefaultLanguage,
		Strategy:      candidate.DefaultKind.String(),
		Limit:         DefaultLimit,
		MinVoteCount:  &minVotes,
		Weights: &WeightsFile{
			Content:    &w.Content,
			Rating:     &w.Rating,
			Popularity: &w.Popularity,
			Year:       &w.Year,
		},
		MaxYearDifference: similarity.DefaultConfig().MaxYearDifference,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
