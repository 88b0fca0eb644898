package candidate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/candidate/candidatetest"
	"github.com/derickschaefer/marquee/internal/model"
)

func ids(movies []model.PartialMovie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustStrategy(t *testing.T, kind candidate.Kind, p candidate.Provider) *candidate.Strategy {
	t.Helper()
	s, err := candidate.New(kind, p, candidate.Options{})
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	return s
}

func TestPoolFirstWinsExcludesSeed(t *testing.T) {
	pool := candidate.NewPool(1)
	first := model.PartialMovie{ID: 2, Title: "first"}
	added := pool.Add(model.PartialMovie{ID: 1}, first, model.PartialMovie{ID: 3}, model.PartialMovie{ID: 2, Title: "second"})
	if added != 2 || pool.Len() != 2 {
		t.Fatalf("added=%d len=%d, want 2/2", added, pool.Len())
	}
	if pool.Contains(1) {
		t.Error("pool must not contain the seed")
	}
	if got := pool.Movies()[0].Title; got != "first" {
		t.Errorf("first occurrence should win, got %q", got)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]candidate.Kind{
		"":              candidate.Hybrid,
		"hybrid":        candidate.Hybrid,
		"tmdb_api":      candidate.ProviderSuggested,
		"provider":      candidate.ProviderSuggested,
		"SAME_YEAR":     candidate.SamePeriod,
		"same_genre":    candidate.SameCategory,
		"same_category": candidate.SameCategory,
	}
	for name, want := range cases {
		got, err := candidate.ParseKind(name)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := candidate.ParseKind("collaborative"); !errors.Is(err, candidate.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := candidate.New(candidate.Kind(99), candidatetest.New(), candidate.Options{}); !errors.Is(err, candidate.ErrUnknownStrategy) {
		t.Errorf("New with invalid kind: %v", err)
	}
}

func TestProviderSuggested(t *testing.T) {
	p := candidatetest.New()
	p.Similar[10] = candidatetest.Partials(11, 12, 10)
	p.Recommended[10] = candidatetest.Partials(12, 13)

	pool, tally := mustStrategy(t, candidate.ProviderSuggested, p).Select(context.Background(), model.Movie{ID: 10})
	if tally.Calls != 2 || tally.Degraded != 0 {
		t.Errorf("tally = %+v, want 2 calls", tally)
	}
	if got := ids(pool.Movies()); !equalInts(got, []int{11, 12, 13}) {
		t.Errorf("pool = %v", got)
	}
}

func TestSamePeriodNoYear(t *testing.T) {
	p := candidatetest.New()
	pool, tally := mustStrategy(t, candidate.SamePeriod, p).Select(context.Background(), model.Movie{ID: 1})
	if pool.Len() != 0 || tally.Calls != 0 || tally.Degraded != 0 {
		t.Errorf("expected empty pool and no calls, got len=%d tally=%+v", pool.Len(), tally)
	}
	if len(p.Calls()) != 0 {
		t.Errorf("provider called: %v", p.Calls())
	}
}

func TestSamePeriodCapsListing(t *testing.T) {
	p := candidatetest.New()
	many := make([]int, 80)
	for i := range many {
		many[i] = 100 + i
	}
	p.Years[1999] = candidatetest.Partials(many...)

	pool, tally := mustStrategy(t, candidate.SamePeriod, p).Select(context.Background(), model.Movie{ID: 1, ReleaseDate: "1999-03-31"})
	if tally.Calls != 1 {
		t.Errorf("calls = %d, want 1", tally.Calls)
	}
	if pool.Len() != 50 {
		t.Errorf("pool len = %d, want 50", pool.Len())
	}
}

func TestSamePeriodPaging(t *testing.T) {
	p := candidatetest.New()
	p.PageSize = 20
	p.Years[2001] = candidatetest.Partials(func() []int {
		out := make([]int, 45)
		for i := range out {
			out[i] = i + 2
		}
		return out
	}()...)

	s, err := candidate.New(candidate.SamePeriod, p, candidate.Options{MaxPages: 5, PeriodLimit: 30})
	if err != nil {
		t.Fatal(err)
	}
	pool, tally := s.Select(context.Background(), model.Movie{ID: 1, ReleaseDate: "2001"})
	if tally.Calls != 2 || pool.Len() != 30 {
		t.Errorf("calls=%d len=%d, want 2/30", tally.Calls, pool.Len())
	}
}

func TestSameCategoryFirstTwoInSeedOrder(t *testing.T) {
	p := candidatetest.New()
	p.YearGenres[candidatetest.GenreKey(1995, "Crime")] = candidatetest.Partials(2, 3)
	p.YearGenres[candidatetest.GenreKey(1995, "Drama")] = candidatetest.Partials(3, 4)
	p.YearGenres[candidatetest.GenreKey(1995, "Thriller")] = candidatetest.Partials(5)

	seed := model.Movie{ID: 1, ReleaseDate: "1995-12-15", Genres: []model.Genre{
		{ID: 80, Name: "Crime"}, {ID: 18, Name: "Drama"}, {ID: 53, Name: "Thriller"},
	}}
	pool, tally := mustStrategy(t, candidate.SameCategory, p).Select(context.Background(), seed)
	if tally.Calls != 2 {
		t.Errorf("calls = %d, want 2", tally.Calls)
	}
	if got := ids(pool.Movies()); !equalInts(got, []int{2, 3, 4}) {
		t.Errorf("pool = %v", got)
	}
}

func TestSameCategoryNoGenres(t *testing.T) {
	p := candidatetest.New()
	pool, tally := mustStrategy(t, candidate.SameCategory, p).Select(context.Background(), model.Movie{ID: 1, ReleaseDate: "2000"})
	if pool.Len() != 0 || tally.Calls != 0 {
		t.Errorf("expected no calls, got %+v", tally)
	}
}

func TestHybridFiveCallsExcludesSeed(t *testing.T) {
	p := candidatetest.New()
	p.Similar[7] = candidatetest.Partials(7, 20)
	p.Recommended[7] = candidatetest.Partials(21)
	p.Years[1999] = candidatetest.Partials(7, 22, 20)
	p.Years[1997] = candidatetest.Partials(23)
	p.Years[2001] = candidatetest.Partials(24, 7)

	pool, tally := mustStrategy(t, candidate.Hybrid, p).Select(context.Background(), model.Movie{ID: 7, ReleaseDate: "1999-03-31"})
	if tally.Calls != 5 {
		t.Errorf("calls = %d, want 5 (%v)", tally.Calls, p.Calls())
	}
	if pool.Contains(7) {
		t.Error("hybrid pool contains the seed")
	}
	if got := ids(pool.Movies()); !equalInts(got, []int{20, 21, 22, 23, 24}) {
		t.Errorf("pool = %v", got)
	}
}

func TestHybridWithoutYear(t *testing.T) {
	p := candidatetest.New()
	_, tally := mustStrategy(t, candidate.Hybrid, p).Select(context.Background(), model.Movie{ID: 7})
	if tally.Calls != 2 {
		t.Errorf("calls = %d, want 2", tally.Calls)
	}
}

func TestFailedSubQueryDegrades(t *testing.T) {
	p := candidatetest.New()
	p.Fail["similar"] = true
	p.Fail["year:1997"] = true
	p.Recommended[7] = candidatetest.Partials(21)
	p.Years[1999] = candidatetest.Partials(22)

	pool, tally := mustStrategy(t, candidate.Hybrid, p).Select(context.Background(), model.Movie{ID: 7, ReleaseDate: "1999"})
	if tally.Calls != 5 || tally.Degraded != 2 || len(tally.Errors) != 2 {
		t.Errorf("tally = %+v, want 5 calls / 2 degraded", tally)
	}
	if !errors.Is(tally.Errors[0], candidatetest.ErrUnavailable) {
		t.Errorf("error not wrapped: %v", tally.Errors[0])
	}
	if got := ids(pool.Movies()); !equalInts(got, []int{21, 22}) {
		t.Errorf("pool = %v", got)
	}
}

func TestTallyAdd(t *testing.T) {
	var total candidate.Tally
	total.Add(candidate.Tally{Calls: 2, Degraded: 1, Errors: []error{errors.New("x")}})
	total.Add(candidate.Tally{Calls: 3})
	if total.Calls != 5 || total.Degraded != 1 || len(total.Errors) != 1 {
		t.Errorf("total = %+v", total)
	}
}
