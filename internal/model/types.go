// Package model defines the canonical data types used throughout marquee.
// These types are the single source of truth for provider entities, the
// recommendation output and the result envelope that every command returns.
package model

import (
	"strconv"
	"strings"
	"time"
)

// ─── Provider Entity Types ────────────────────────────────────────────────────

// Genre is a category tag attached to a movie. Similarity compares names.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Keyword is a free-text theme tag attached to a movie.
type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PartialMovie is the discovery shape returned by list endpoints
// (year listings, similar, recommended). Keywords are usually absent.
type PartialMovie struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	VoteCount    int       `json:"vote_count"`
	VoteAverage  float64   `json:"vote_average"`
	Popularity   float64   `json:"popularity"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	Genres       []Genre   `json:"genres,omitempty"`
	Keywords     []Keyword `json:"keywords,omitempty"`
}

// Movie is the complete shape returned by the detail endpoint.
type Movie struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	VoteCount    int       `json:"vote_count"`
	VoteAverage  float64   `json:"vote_average"`
	Popularity   float64   `json:"popularity"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	Genres       []Genre   `json:"genres"`
	Keywords     []Keyword `json:"keywords"`
	Runtime      int       `json:"runtime,omitempty"` // minutes; 0 = unknown
	Tagline      string    `json:"tagline,omitempty"`
	IMDBID       string    `json:"imdb_id,omitempty"`
}

// Page is one page of a paged discovery listing.
type Page struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []PartialMovie `json:"results"`
}

// NeedsDetail reports whether the partial record lacks the genre or keyword
// data required for scoring.
func (p PartialMovie) NeedsDetail() bool {
	return len(p.Genres) == 0 || len(p.Keywords) == 0
}

// Complete converts a partial record that already carries genres and
// keywords into a Movie without a provider call. ok is false when the
// record still needs its detail fetched.
func (p PartialMovie) Complete() (Movie, bool) {
	if p.NeedsDetail() {
		return Movie{}, false
	}
	return Movie{
		ID:           p.ID,
		Title:        p.Title,
		ReleaseDate:  p.ReleaseDate,
		VoteCount:    p.VoteCount,
		VoteAverage:  p.VoteAverage,
		Popularity:   p.Popularity,
		Overview:     p.Overview,
		PosterPath:   p.PosterPath,
		BackdropPath: p.BackdropPath,
		Genres:       append([]Genre(nil), p.Genres...),
		Keywords:     append([]Keyword(nil), p.Keywords...),
	}, true
}

// ReleaseYear returns the year of the release date and false when the date
// is absent or unparseable. Accepts YYYY-MM-DD, YYYY-MM and YYYY.
func (m Movie) ReleaseYear() (int, bool) { return releaseYear(m.ReleaseDate) }

// ReleaseYear returns the year of the release date, see Movie.ReleaseYear.
func (p PartialMovie) ReleaseYear() (int, bool) { return releaseYear(p.ReleaseDate) }

// GenreNames returns the genre names in record order without duplicates.
func (m Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return uniqueNames(names)
}

// KeywordNames returns the keyword names in record order without duplicates.
func (m Movie) KeywordNames() []string {
	names := make([]string, 0, len(m.Keywords))
	for _, k := range m.Keywords {
		names = append(names, k.Name)
	}
	return uniqueNames(names)
}

func releaseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	if len(date) > 4 && date[4] != '-' {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ─── Recommendation Types ─────────────────────────────────────────────────────

// Similarity is the scored comparison of one candidate against one seed.
// Sub-scores are in [0,1]; Score is the weighted sum and is not re-clamped.
type Similarity struct {
	Score          float64  `json:"similarity_score"`
	Genre          float64  `json:"genre_similarity"`
	Keyword        float64  `json:"keyword_similarity"`
	Content        float64  `json:"content_similarity"`
	Rating         float64  `json:"rating_similarity"`
	Year           float64  `json:"year_similarity"`
	SharedGenres   []string `json:"shared_genres"`
	SharedKeywords []string `json:"shared_keywords"`
	Reason         string   `json:"similarity_reason"`
}

// Recommendation pairs a ranked candidate with its similarity to the seed.
type Recommendation struct {
	Movie      Movie      `json:"movie"`
	Similarity Similarity `json:"similarity"`
}

// Report holds the ranked recommendations for a single seed movie.
type Report struct {
	Seed            Movie            `json:"seed"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Run is the output of one orchestration pass over a list of seeds.
type Run struct {
	ID             string    `json:"id"`
	GeneratedAt    time.Time `json:"generated_at"`
	Strategy       string    `json:"strategy"`
	Limit          int       `json:"limit"`
	MinVoteCount   int       `json:"min_vote_count"`
	Calls          int       `json:"external_calls"`
	Degraded       int       `json:"degraded_queries"`
	EnrichFailures int       `json:"enrich_failures"`
	Reports        []Report  `json:"reports"`
	Warnings       []string  `json:"warnings,omitempty"`
}

// Pairs flattens the run into one record per (seed, recommendation),
// preserving seed order and rank order.
func (r *Run) Pairs() []PairRecord {
	var out []PairRecord
	for _, rep := range r.Reports {
		for _, rec := range rep.Recommendations {
			out = append(out, NewPairRecord(rep.Seed, rec))
		}
	}
	return out
}

// Scores returns every recommendation score in the run, in pair order.
func (r *Run) Scores() []float64 {
	var out []float64
	for _, rep := range r.Reports {
		for _, rec := range rep.Recommendations {
			out = append(out, rec.Similarity.Score)
		}
	}
	return out
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
	Calls      int   `json:"external_calls,omitempty"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindMovie           = "movie"
	KindMovies          = "movies"
	KindRecommendations = "recommendations"
	KindRuns            = "runs"
	KindAnalysis        = "analysis"
	KindGenres          = "genres"
)

// RunInfo is the summary line for an archived run.
type RunInfo struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Strategy    string    `json:"strategy"`
	Seeds       int       `json:"seeds"`
	Pairs       int       `json:"pairs"`
	Calls       int       `json:"external_calls"`
}

// Info summarises a run for listings.
func (r *Run) Info() RunInfo {
	pairs := 0
	for _, rep := range r.Reports {
		pairs += len(rep.Recommendations)
	}
	return RunInfo{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt,
		Strategy:    r.Strategy,
		Seeds:       len(r.Reports),
		Pairs:       pairs,
		Calls:       r.Calls,
	}
}
