package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/derickschaefer/marquee/internal/candidate/candidatetest"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/recommend"
	"github.com/derickschaefer/marquee/internal/similarity"
)

func newEngine(t *testing.T, p *candidatetest.Provider) *recommend.Engine {
	t.Helper()
	s, err := similarity.NewScorer(similarity.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return recommend.NewEngine(p, s)
}

func movie(id int, date string, votes int, genres ...string) model.Movie {
	m := model.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id), ReleaseDate: date, VoteCount: votes, VoteAverage: 7}
	for i, g := range genres {
		m.Genres = append(m.Genres, model.Genre{ID: i + 1, Name: g})
	}
	m.Keywords = []model.Keyword{}
	return m
}

func TestInvalidConfigBeforeAnyCall(t *testing.T) {
	p := candidatetest.New()
	e := newEngine(t, p)
	seeds := []model.Movie{movie(1, "1999", 10)}
	cases := []recommend.Options{
		{Limit: 0},
		{Limit: -3},
		{Limit: 5, Strategy: "nearest_neighbour"},
		{Limit: 5, MinVoteCount: -1},
	}
	for _, opts := range cases {
		if _, err := e.Recommend(context.Background(), seeds, opts); !errors.Is(err, recommend.ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", opts, err)
		}
	}
	if calls := p.Calls(); len(calls) != 0 {
		t.Errorf("provider called before validation: %v", calls)
	}
}

func TestEmptySeeds(t *testing.T) {
	run, err := newEngine(t, candidatetest.New()).Recommend(context.Background(), nil, recommend.Options{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Reports) != 0 || run.Calls != 0 {
		t.Errorf("expected empty run, got %+v", run)
	}
	if run.ID == "" || run.Strategy != "hybrid" {
		t.Errorf("run metadata: id=%q strategy=%q", run.ID, run.Strategy)
	}
}

func TestRecommendEnrichFilterRankTruncate(t *testing.T) {
	p := candidatetest.New()
	seed := movie(1, "1999-03-31", 1000, "Action", "Science Fiction")

	p.Similar[1] = candidatetest.Partials(10, 11)
	p.Recommended[1] = candidatetest.Partials(12, 13)
	p.Details[10] = movie(10, "1999-06-01", 500, "Action", "Science Fiction")
	p.Details[11] = movie(11, "1980-01-01", 500, "Comedy")
	p.Details[12] = movie(12, "1999-06-01", 500, "Action", "Science Fiction") // ties with 10
	p.Details[13] = movie(13, "1999-06-01", 5, "Action")                       // below min votes

	var stages []recommend.Stage
	e := newEngine(t, p).OnStage(func(_ model.Movie, s recommend.Stage) { stages = append(stages, s) })

	run, err := e.Recommend(context.Background(), []model.Movie{seed}, recommend.Options{
		Limit: 2, Strategy: "tmdb_api", MinVoteCount: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if run.Strategy != "provider" {
		t.Errorf("strategy = %q", run.Strategy)
	}
	// 2 selection calls + 4 detail calls
	if run.Calls != 6 {
		t.Errorf("calls = %d, want 6 (%v)", run.Calls, p.Calls())
	}
	recs := run.Reports[0].Recommendations
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
	if recs[0].Movie.ID != 10 || recs[1].Movie.ID != 12 {
		t.Errorf("order = %d,%d; want 10,12 (tie broken by id)", recs[0].Movie.ID, recs[1].Movie.ID)
	}
	if recs[0].Similarity.Score != recs[1].Similarity.Score {
		t.Error("expected identical scores for identical candidates")
	}

	want := []recommend.Stage{recommend.StageIdle, recommend.StageSelecting, recommend.StageEnriching, recommend.StageScoring, recommend.StageRanked}
	if fmt.Sprint(stages) != fmt.Sprint(want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestCompletePartialsSkipEnrichment(t *testing.T) {
	p := candidatetest.New()
	p.Similar[1] = []model.PartialMovie{{
		ID: 2, VoteCount: 10,
		Genres:   []model.Genre{{ID: 18, Name: "Drama"}},
		Keywords: []model.Keyword{{ID: 1, Name: "prison"}},
	}}
	run, err := newEngine(t, p).Recommend(context.Background(), []model.Movie{movie(1, "", 10, "Drama")}, recommend.Options{
		Limit: 5, Strategy: "provider",
	})
	if err != nil {
		t.Fatal(err)
	}
	if run.Calls != 2 {
		t.Errorf("calls = %d, want 2", run.Calls)
	}
	if len(run.Reports[0].Recommendations) != 1 {
		t.Errorf("expected the complete partial to be scored")
	}
}

func TestFailedEnrichmentExcludesCandidate(t *testing.T) {
	p := candidatetest.New()
	p.Similar[1] = candidatetest.Partials(2, 3)
	p.Details[2] = movie(2, "2000", 10, "Drama")
	// no detail for 3

	run, err := newEngine(t, p).Recommend(context.Background(), []model.Movie{movie(1, "2000", 10, "Drama")}, recommend.Options{
		Limit: 5, Strategy: "provider",
	})
	if err != nil {
		t.Fatal(err)
	}
	if run.EnrichFailures != 1 || len(run.Warnings) != 1 {
		t.Errorf("enrich failures=%d warnings=%v", run.EnrichFailures, run.Warnings)
	}
	recs := run.Reports[0].Recommendations
	if len(recs) != 1 || recs[0].Movie.ID != 2 {
		t.Errorf("recs = %+v", recs)
	}
	if run.Calls != 4 {
		t.Errorf("calls = %d, want 4 (failed calls count)", run.Calls)
	}
}

func TestDegradedSubQueriesAndSeedOrder(t *testing.T) {
	p := candidatetest.New()
	p.Fail["year"] = true
	p.Similar[5] = candidatetest.Partials(6)
	p.Details[6] = movie(6, "2010", 10)

	seeds := []model.Movie{movie(5, "2010-07-16", 10), movie(7, "", 10), movie(8, "1994", 10)}
	run, err := newEngine(t, p).Recommend(context.Background(), seeds, recommend.Options{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(run.Reports))
	}
	for i, id := range []int{5, 7, 8} {
		if run.Reports[i].Seed.ID != id {
			t.Errorf("report %d seed = %d, want %d", i, run.Reports[i].Seed.ID, id)
		}
	}
	// seeds 5 and 8 each lose three year lookups; seed 7 has no year
	if run.Degraded != 6 {
		t.Errorf("degraded = %d, want 6", run.Degraded)
	}
	// 5 + 2 + 5 selection calls, plus one detail call for candidate 6
	if run.Calls != 13 {
		t.Errorf("calls = %d, want 13", run.Calls)
	}
	if len(run.Reports[1].Recommendations) != 0 {
		t.Error("seed without candidates should produce an empty report")
	}
}

func TestCountersResetPerRun(t *testing.T) {
	p := candidatetest.New()
	e := newEngine(t, p)
	seeds := []model.Movie{movie(1, "", 10)}
	first, _ := e.Recommend(context.Background(), seeds, recommend.Options{Limit: 1})
	second, _ := e.Recommend(context.Background(), seeds, recommend.Options{Limit: 1})
	if first.Calls != 2 || second.Calls != 2 {
		t.Errorf("calls = %d then %d, want 2 both times", first.Calls, second.Calls)
	}
	if first.ID == second.ID {
		t.Error("each run gets its own id")
	}
}

type recorder struct {
	runs int
}

func (r *recorder) ObserveRun(*model.Run, time.Duration) { r.runs++ }

func TestRecorderAndCancellation(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, candidatetest.New()).WithRecorder(rec)
	if _, err := e.Recommend(context.Background(), []model.Movie{movie(1, "", 1)}, recommend.Options{Limit: 1}); err != nil {
		t.Fatal(err)
	}
	if rec.runs != 1 {
		t.Errorf("recorder saw %d runs", rec.runs)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := e.Recommend(ctx, []model.Movie{movie(1, "", 1)}, recommend.Options{Limit: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run == nil || len(run.Reports) != 0 {
		t.Errorf("expected empty partial run, got %+v", run)
	}
}

// cancellingProvider cancels the run as soon as similar titles are requested.
type cancellingProvider struct {
	*candidatetest.Provider
	cancel context.CancelFunc
}

func (p cancellingProvider) SimilarMovies(ctx context.Context, id int) ([]model.PartialMovie, error) {
	p.cancel()
	return p.Provider.SimilarMovies(ctx, id)
}

func TestCancelDuringSeedDropsItsReport(t *testing.T) {
	fake := candidatetest.New()
	fake.Similar[1] = candidatetest.Partials(10, 11, 12)
	for _, id := range []int{10, 11, 12} {
		fake.Details[id] = movie(id, "1999", 100, "Action")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := similarity.NewScorer(similarity.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	e := recommend.NewEngine(cancellingProvider{Provider: fake, cancel: cancel}, s).WithRecorder(rec)

	seeds := []model.Movie{movie(1, "1999", 100, "Action"), movie(2, "1999", 100, "Action")}
	run, err := e.Recommend(ctx, seeds, recommend.Options{Limit: 5, Strategy: "provider"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(run.Reports) != 0 {
		t.Errorf("the interrupted seed must not be reported, got %d reports", len(run.Reports))
	}
	if run.EnrichFailures != 0 {
		t.Errorf("enrichment should stop on cancel, got %d failures", run.EnrichFailures)
	}
	for _, c := range fake.Calls() {
		if c == "detail:10" || c == "detail:11" || c == "detail:12" || c == "similar:2" {
			t.Errorf("unexpected call after cancel: %s", c)
		}
	}
	if rec.runs != 0 {
		t.Errorf("cancelled run must not be recorded, recorder saw %d", rec.runs)
	}
}

func TestRank(t *testing.T) {
	recs := []model.Recommendation{
		{Movie: model.Movie{ID: 9}, Similarity: model.Similarity{Score: 0.5}},
		{Movie: model.Movie{ID: 3}, Similarity: model.Similarity{Score: 0.7}},
		{Movie: model.Movie{ID: 4}, Similarity: model.Similarity{Score: 0.5}},
	}
	recommend.Rank(recs)
	got := []int{recs[0].Movie.ID, recs[1].Movie.ID, recs[2].Movie.ID}
	if fmt.Sprint(got) != "[3 4 9]" {
		t.Errorf("rank order = %v", got)
	}
}
