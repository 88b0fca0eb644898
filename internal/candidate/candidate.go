// Package candidate implements the first recommendation stage: turning one
// seed movie into a bounded, deduplicated pool of candidate movies with a
// small, fixed number of provider calls.
package candidate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/derickschaefer/marquee/internal/model"
)

// Provider is the movie data source the strategies query. Every method is
// one external call.
type Provider interface {
	// MoviesByYear lists movies released in year, most popular first.
	MoviesByYear(ctx context.Context, year, page int) (*model.Page, error)
	// MoviesByYearAndGenre lists movies tagged with genre. A year of 0
	// removes the year restriction.
	MoviesByYearAndGenre(ctx context.Context, year int, genre model.Genre, page int) (*model.Page, error)
	// MovieDetail returns the complete record, keywords included.
	MovieDetail(ctx context.Context, id int) (*model.Movie, error)
	SimilarMovies(ctx context.Context, id int) ([]model.PartialMovie, error)
	RecommendedMovies(ctx context.Context, id int) ([]model.PartialMovie, error)
}

// ─── Kind ─────────────────────────────────────────────────────────────────────

// Kind enumerates the selection strategies.
type Kind int

const (
	ProviderSuggested Kind = iota + 1
	SamePeriod
	SameCategory
	Hybrid
)

// DefaultKind is used when no strategy is configured.
const DefaultKind = Hybrid

// ErrUnknownStrategy is returned by ParseKind for names it does not know.
var ErrUnknownStrategy = errors.New("unknown strategy")

var kindNames = map[Kind]string{
	ProviderSuggested: "provider",
	SamePeriod:        "same_period",
	SameCategory:      "same_category",
	Hybrid:            "hybrid",
}

var kindAliases = map[string]Kind{
	"provider":      ProviderSuggested,
	"tmdb_api":      ProviderSuggested,
	"same_period":   SamePeriod,
	"same_year":     SamePeriod,
	"same_category": SameCategory,
	"same_genre":    SameCategory,
	"hybrid":        Hybrid,
}

// String returns the canonical strategy name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a strategy name, or one of its aliases, to a Kind.
// The empty string selects DefaultKind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultKind, nil
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w %q (valid: %s)", ErrUnknownStrategy, name, strings.Join(KindNames(), ", "))
}

// KindNames returns the canonical strategy names in declaration order.
func KindNames() []string {
	return []string{
		ProviderSuggested.String(),
		SamePeriod.String(),
		SameCategory.String(),
		Hybrid.String(),
	}
}

// ─── Pool ─────────────────────────────────────────────────────────────────────

// Pool is an insertion-ordered, duplicate-free set of candidates that never
// contains the seed. The first occurrence of an id wins.
type Pool struct {
	seedID int
	seen   map[int]struct{}
	items  []model.PartialMovie
}

// NewPool returns an empty pool for seedID.
func NewPool(seedID int) *Pool {
	return &Pool{seedID: seedID, seen: make(map[int]struct{})}
}

// Add appends the movies that are neither the seed nor already present and
// returns how many were added.
func (p *Pool) Add(movies ...model.PartialMovie) int {
	added := 0
	for _, m := range movies {
		if m.ID == p.seedID {
			continue
		}
		if _, dup := p.seen[m.ID]; dup {
			continue
		}
		p.seen[m.ID] = struct{}{}
		p.items = append(p.items, m)
		added++
	}
	return added
}

// Contains reports whether id is in the pool.
func (p *Pool) Contains(id int) bool {
	_, ok := p.seen[id]
	return ok
}

// Len returns the number of candidates.
func (p *Pool) Len() int { return len(p.items) }

// Movies returns the candidates in insertion order.
func (p *Pool) Movies() []model.PartialMovie {
	out := make([]model.PartialMovie, len(p.items))
	copy(out, p.items)
	return out
}

// ─── Tally ────────────────────────────────────────────────────────────────────

// Tally accounts for the provider calls a selection made. Failed calls are
// still calls.
type Tally struct {
	Calls    int
	Degraded int
	Errors   []error
}

// Add folds o into t.
func (t *Tally) Add(o Tally) {
	t.Calls += o.Calls
	t.Degraded += o.Degraded
	t.Errors = append(t.Errors, o.Errors...)
}

// record counts one call and reports whether it succeeded.
func (t *Tally) record(query string, err error) bool {
	t.Calls++
	if err != nil {
		t.Degraded++
		t.Errors = append(t.Errors, fmt.Errorf("%s: %w", query, err))
		return false
	}
	return true
}
