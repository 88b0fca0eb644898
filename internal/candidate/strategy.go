package candidate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/derickschaefer/marquee/internal/model"
)

// earliestYear bounds nearby-year lookups; nothing was released before it.
const earliestYear = 1888

// Options bounds how much of each listing a strategy takes.
// Zero values select the defaults.
type Options struct {
	// MaxPages caps the pages read from a same-period listing.
	MaxPages int
	// PeriodLimit caps entries taken from the seed-year listing.
	PeriodLimit int
	// NearbyLimit caps entries taken from each nearby-year listing (hybrid).
	NearbyLimit int
	// CategoryLimit caps entries taken from each category listing.
	CategoryLimit int
	// NearbyOffsets are the year offsets hybrid adds around the seed year.
	NearbyOffsets []int
	// MaxCategories caps how many seed categories are queried.
	MaxCategories int
}

// DefaultOptions returns the stock selection bounds.
func DefaultOptions() Options {
	return Options{
		MaxPages:      1,
		PeriodLimit:   50,
		NearbyLimit:   10,
		CategoryLimit: 25,
		NearbyOffsets: []int{-2, 2},
		MaxCategories: 2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPages == 0 {
		o.MaxPages = d.MaxPages
	}
	if o.PeriodLimit == 0 {
		o.PeriodLimit = d.PeriodLimit
	}
	if o.NearbyLimit == 0 {
		o.NearbyLimit = d.NearbyLimit
	}
	if o.CategoryLimit == 0 {
		o.CategoryLimit = d.CategoryLimit
	}
	if o.NearbyOffsets == nil {
		o.NearbyOffsets = d.NearbyOffsets
	}
	if o.MaxCategories == 0 {
		o.MaxCategories = d.MaxCategories
	}
	return o
}

func (o Options) validate() error {
	switch {
	case o.MaxPages < 0:
		return fmt.Errorf("max pages must be positive, got %d", o.MaxPages)
	case o.PeriodLimit < 0, o.NearbyLimit < 0, o.CategoryLimit < 0:
		return fmt.Errorf("listing limits must be positive")
	case o.MaxCategories < 0:
		return fmt.Errorf("max categories must be positive, got %d", o.MaxCategories)
	}
	return nil
}

// Strategy selects candidates for a seed according to its Kind.
// A Strategy holds no per-run state and may be shared between runs.
type Strategy struct {
	kind     Kind
	provider Provider
	opts     Options
}

// New returns the strategy for kind.
func New(kind Kind, provider Provider, opts Options) (*Strategy, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, kind)
	}
	if provider == nil {
		return nil, fmt.Errorf("candidate strategy %s: nil provider", kind)
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("candidate strategy %s: %w", kind, err)
	}
	return &Strategy{kind: kind, provider: provider, opts: opts.withDefaults()}, nil
}

// Kind returns the strategy kind.
func (s *Strategy) Kind() Kind { return s.kind }

// Select builds the candidate pool for seed. Failed sub-queries contribute
// nothing to the pool and are reported in the tally; Select itself never
// fails.
func (s *Strategy) Select(ctx context.Context, seed model.Movie) (*Pool, Tally) {
	pool := NewPool(seed.ID)
	var t Tally

	switch s.kind {
	case ProviderSuggested:
		s.suggested(ctx, seed, pool, &t)
	case SamePeriod:
		if year, ok := seed.ReleaseYear(); ok {
			s.period(ctx, year, s.opts.PeriodLimit, s.opts.MaxPages, pool, &t)
		}
	case SameCategory:
		s.category(ctx, seed, pool, &t)
	case Hybrid:
		s.suggested(ctx, seed, pool, &t)
		if year, ok := seed.ReleaseYear(); ok {
			s.period(ctx, year, s.opts.PeriodLimit, s.opts.MaxPages, pool, &t)
			for _, off := range s.opts.NearbyOffsets {
				if y := year + off; y >= earliestYear {
					s.period(ctx, y, s.opts.NearbyLimit, 1, pool, &t)
				}
			}
		}
	}

	slog.Debug("candidate selection",
		"strategy", s.kind.String(),
		"seed", seed.ID,
		"candidates", pool.Len(),
		"calls", t.Calls,
		"degraded", t.Degraded,
	)
	return pool, t
}

// ─── Sub-queries ─────────────────────────────────────────────────────────────

func (s *Strategy) suggested(ctx context.Context, seed model.Movie, pool *Pool, t *Tally) {
	similar, err := s.provider.SimilarMovies(ctx, seed.ID)
	if t.record(fmt.Sprintf("similar movies for %d", seed.ID), err) {
		pool.Add(similar...)
	}
	recommended, err := s.provider.RecommendedMovies(ctx, seed.ID)
	if t.record(fmt.Sprintf("recommended movies for %d", seed.ID), err) {
		pool.Add(recommended...)
	}
}

// period reads the listing for year page by page until limit entries have
// been taken, the listing ends, or maxPages is reached.
func (s *Strategy) period(ctx context.Context, year, limit, maxPages int, pool *Pool, t *Tally) {
	taken := 0
	for page := 1; page <= maxPages && taken < limit; page++ {
		res, err := s.provider.MoviesByYear(ctx, year, page)
		if !t.record(fmt.Sprintf("movies of %d page %d", year, page), err) || res == nil {
			return
		}
		results := take(res.Results, limit-taken)
		taken += len(results)
		pool.Add(results...)
		if len(res.Results) == 0 || page >= res.TotalPages {
			return
		}
	}
}

func (s *Strategy) category(ctx context.Context, seed model.Movie, pool *Pool, t *Tally) {
	year, _ := seed.ReleaseYear()
	for _, g := range firstGenres(seed.Genres, s.opts.MaxCategories) {
		res, err := s.provider.MoviesByYearAndGenre(ctx, year, g, 1)
		if !t.record(fmt.Sprintf("movies of genre %q", g.Name), err) || res == nil {
			continue
		}
		pool.Add(take(res.Results, s.opts.CategoryLimit)...)
	}
}

// firstGenres returns up to n distinct genres in record order.
func firstGenres(genres []model.Genre, n int) []model.Genre {
	seen := make(map[string]struct{}, n)
	out := make([]model.Genre, 0, n)
	for _, g := range genres {
		if len(out) == n {
			break
		}
		if _, dup := seen[g.Name]; dup || g.Name == "" {
			continue
		}
		seen[g.Name] = struct{}{}
		out = append(out, g)
	}
	return out
}

func take(movies []model.PartialMovie, n int) []model.PartialMovie {
	if n < 0 {
		n = 0
	}
	if len(movies) > n {
		return movies[:n]
	}
	return movies
}
