// Package similarity scores a candidate movie against a seed movie.
//
// The overall score is a weighted combination of four factors:
//
//	score = w_content    * (jaccard(genres) + jaccard(keywords)) / 2 +
//	        w_rating     * (1 - |Δvote_average| / 10) +
//	        w_popularity * min(popularity / 100, 1) +
//	        w_year       * (1 - Δyear / max_year_difference)
//
// Scoring is pure and deterministic: the same pair always yields the same
// Similarity, including the explanation text.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/util"
)

// Weights are the per-factor multipliers of the overall score.
// They need not sum to 1; the overall score is not renormalized.
type Weights struct {
	Content    float64 `json:"content" validate:"gte=0"`
	Rating     float64 `json:"rating" validate:"gte=0"`
	Popularity float64 `json:"popularity" validate:"gte=0"`
	Year       float64 `json:"year" validate:"gte=0"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 { return w.Content + w.Rating + w.Popularity + w.Year }

// DefaultWeights returns the stock weighting: content 0.4, rating 0.3,
// popularity 0.2, release period 0.1.
func DefaultWeights() Weights {
	return Weights{Content: 0.4, Rating: 0.3, Popularity: 0.2, Year: 0.1}
}

// Config configures a Scorer.
type Config struct {
	Weights           Weights
	MaxYearDifference int     `validate:"gt=0"`
	RatingThreshold   float64 `validate:"gte=0,lte=1"`
	YearThreshold     float64 `validate:"gte=0,lte=1"`
	// PopularityScale is the popularity value that maps to a factor of 1.
	PopularityScale float64 `validate:"gt=0"`
}

// DefaultConfig returns the stock scorer configuration.
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		MaxYearDifference: 20,
		RatingThreshold:   0.8,
		YearThreshold:     0.8,
		PopularityScale:   100,
	}
}

// ErrInvalidWeights is returned by NewScorer for malformed configuration.
var ErrInvalidWeights = errors.New("invalid similarity configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and reports every problem at once.
func (cfg Config) Validate() error {
	var merr util.MultiError
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				merr.Add(fmt.Errorf("%s: must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			}
		} else {
			merr.Add(err)
		}
	}
	w := cfg.Weights
	for _, f := range []struct {
		name string
		v    float64
	}{{"content", w.Content}, {"rating", w.Rating}, {"popularity", w.Popularity}, {"year", w.Year}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			merr.Add(fmt.Errorf("weight %s: must be finite", f.name))
		}
	}
	if w.Sum() <= 0 {
		merr.Add(errors.New("weights: at least one weight must be positive"))
	}
	if err := merr.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	return nil
}

// Scorer computes Similarity values for (seed, candidate) pairs.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and returns a Scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the configuration the scorer was built with.
func (s *Scorer) Config() Config { return s.cfg }

// Score compares candidate against seed.
func (s *Scorer) Score(seed, candidate model.Movie) model.Similarity {
	seedGenres, candGenres := seed.GenreNames(), candidate.GenreNames()
	seedKeywords, candKeywords := seed.KeywordNames(), candidate.KeywordNames()

	genre, sharedGenres := Jaccard(seedGenres, candGenres)
	keyword, sharedKeywords := Jaccard(seedKeywords, candKeywords)
	content := (genre + keyword) / 2
	rating := RatingSimilarity(seed.VoteAverage, candidate.VoteAverage)
	year := s.yearSimilarity(seed, candidate)
	pop := s.popularityFactor(candidate.Popularity)

	w := s.cfg.Weights
	sim := model.Similarity{
		Score:          w.Content*content + w.Rating*rating + w.Popularity*pop + w.Year*year,
		Genre:          genre,
		Keyword:        keyword,
		Content:        content,
		Rating:         rating,
		Year:           year,
		SharedGenres:   sharedGenres,
		SharedKeywords: sharedKeywords,
	}
	sim.Reason = s.explain(seed, candidate, sim)
	return sim
}

// ─── Factors ──────────────────────────────────────────────────────────────────

// Jaccard returns |a ∩ b| / |a ∪ b| and the shared names in a's order.
// An empty union yields 0.
func Jaccard(a, b []string) (float64, []string) {
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	shared := []string{}
	for _, v := range a {
		if _, dup := union[v]; dup {
			continue
		}
		union[v] = struct{}{}
		if _, ok := inB[v]; ok {
			shared = append(shared, v)
		}
	}
	for _, v := range b {
		union[v] = struct{}{}
	}
	if len(union) == 0 {
		return 0, shared
	}
	return float64(len(shared)) / float64(len(union)), shared
}

// RatingSimilarity maps the vote average gap onto [0,1].
func RatingSimilarity(a, b float64) float64 {
	return clamp01(1 - math.Abs(a-b)/10)
}

func (s *Scorer) yearSimilarity(seed, candidate model.Movie) float64 {
	sy, ok1 := seed.ReleaseYear()
	cy, ok2 := candidate.ReleaseYear()
	if !ok1 || !ok2 {
		return 0
	}
	diff := sy - cy
	if diff < 0 {
		diff = -diff
	}
	if diff >= s.cfg.MaxYearDifference {
		return 0
	}
	return 1 - float64(diff)/float64(s.cfg.MaxYearDifference)
}

func (s *Scorer) popularityFactor(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return 0
	}
	return math.Min(p/s.cfg.PopularityScale, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ─── Explanation ─────────────────────────────────────────────────────────────

const maxNamedGenres = 2

func (s *Scorer) explain(seed, candidate model.Movie, sim model.Similarity) string {
	var reasons []string
	if n := len(sim.SharedGenres); n > 0 {
		named := sim.SharedGenres
		if n > maxNamedGenres {
			named = named[:maxNamedGenres]
		}
		reasons = append(reasons, "Shared genres: "+strings.Join(named, ", "))
	}
	switch n := len(sim.SharedKeywords); {
	case n == 1:
		reasons = append(reasons, "1 shared keyword")
	case n > 1:
		reasons = append(reasons, fmt.Sprintf("%d shared keywords", n))
	}
	if sim.Rating > s.cfg.RatingThreshold {
		reasons = append(reasons, fmt.Sprintf("Similar rating (%.1f vs %.1f)", seed.VoteAverage, candidate.VoteAverage))
	}
	if sim.Year > s.cfg.YearThreshold {
		sy, _ := seed.ReleaseYear()
		cy, _ := candidate.ReleaseYear()
		reasons = append(reasons, fmt.Sprintf("Similar era (%d vs %d)", sy, cy))
	}
	if len(reasons) == 0 {
		return "General similarity"
	}
	return strings.Join(reasons, "; ")
}
