package analyze_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/derickschaefer/marquee/internal/analyze"
	"github.com/derickschaefer/marquee/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func rec(id int, score float64, genres ...string) model.Recommendation {
	return model.Recommendation{
		Movie: model.Movie{ID: id},
		Similarity: model.Similarity{
			Score:        score,
			Genre:        score,
			SharedGenres: genres,
		},
	}
}

// ─── Summarize ────────────────────────────────────────────────────────────────

func TestSummarizeBasic(t *testing.T) {
	s := analyze.Summarize("score", []float64{1, 2, math.NaN(), 4, 5})

	if s.Label != "score" || s.Count != 5 || s.Missing != 1 {
		t.Errorf("counts: %+v", s)
	}
	if !approxEqual(s.Mean, 3.0, 1e-9) {
		t.Errorf("Mean: expected 3.0, got %g", s.Mean)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("Min/Max: got %g/%g", s.Min, s.Max)
	}
	if !approxEqual(s.Median, 3.0, 1e-9) {
		t.Errorf("Median: expected 3.0, got %g", s.Median)
	}
	if !approxEqual(s.P25, 1.75, 1e-9) {
		t.Errorf("P25: expected 1.75, got %g", s.P25)
	}
}

func TestSummarizeStd(t *testing.T) {
	s := analyze.Summarize("x", []float64{2, 4, 4, 4, 5, 5, 7, 9})
	// sample std of this set is sqrt(32/7)
	if !approxEqual(s.Std, math.Sqrt(32.0/7.0), 1e-9) {
		t.Errorf("Std: got %g", s.Std)
	}
}

func TestSummarizeAllNaN(t *testing.T) {
	s := analyze.Summarize("x", []float64{math.NaN(), math.NaN()})
	if s.Missing != 2 {
		t.Errorf("Missing: expected 2, got %d", s.Missing)
	}
	if !math.IsNaN(s.Mean) || !math.IsNaN(s.Median) {
		t.Errorf("stats should be NaN with no values: %+v", s)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := analyze.Summarize("x", nil)
	if s.Count != 0 || !math.IsNaN(s.Mean) {
		t.Errorf("empty summary: %+v", s)
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	s := analyze.Summarize("x", []float64{0.42})
	if s.Std != 0 || s.Skew != 0 {
		t.Errorf("single value: std=%g skew=%g", s.Std, s.Skew)
	}
	if s.P25 != 0.42 || s.P75 != 0.42 {
		t.Errorf("percentiles: %g %g", s.P25, s.P75)
	}
}

// ─── AnalyzeRun ───────────────────────────────────────────────────────────────

func TestAnalyzeRun(t *testing.T) {
	run := &model.Run{
		ID:       "r1",
		Strategy: "hybrid",
		Calls:    12,
		Degraded: 1,
		Reports: []model.Report{
			{Recommendations: []model.Recommendation{
				rec(1, 0.9, "Action", "Science Fiction"),
				rec(2, 0.5, "Action"),
			}},
			{Recommendations: []model.Recommendation{rec(3, 0.7, "Drama")}},
			{},
		},
	}

	rs := analyze.AnalyzeRun(run, 0)

	if rs.Seeds != 3 || rs.EmptySeeds != 1 || rs.Pairs != 3 {
		t.Errorf("counts: %+v", rs)
	}
	if rs.CallsPerSeed != 4 {
		t.Errorf("CallsPerSeed: expected 4, got %g", rs.CallsPerSeed)
	}
	if len(rs.Factors) != len(analyze.FactorLabels) {
		t.Fatalf("expected %d factors, got %d", len(analyze.FactorLabels), len(rs.Factors))
	}
	score := rs.Factors[0]
	if score.Label != "score" || !approxEqual(score.Mean, 0.7, 1e-9) || score.Max != 0.9 {
		t.Errorf("score summary: %+v", score)
	}
	if rs.SharedGenres[0] != (analyze.Count{Name: "Action", Count: 2}) {
		t.Errorf("top genre: %+v", rs.SharedGenres[0])
	}
	// ties broken by name
	if rs.SharedGenres[1].Name != "Drama" || rs.SharedGenres[2].Name != "Science Fiction" {
		t.Errorf("genre order: %+v", rs.SharedGenres)
	}
}

func TestAnalyzeRunTopGenresCap(t *testing.T) {
	run := &model.Run{Reports: []model.Report{{Recommendations: []model.Recommendation{
		rec(1, 0.5, "A", "B", "C"),
	}}}}
	rs := analyze.AnalyzeRun(run, 2)
	if len(rs.SharedGenres) != 2 {
		t.Errorf("expected 2 genres, got %v", rs.SharedGenres)
	}
}

func TestAnalyzeRunNoSeeds(t *testing.T) {
	rs := analyze.AnalyzeRun(&model.Run{}, 5)
	if rs.CallsPerSeed != 0 || rs.Pairs != 0 {
		t.Errorf("empty run: %+v", rs)
	}
	if !math.IsNaN(rs.Factors[0].Mean) {
		t.Error("score mean of empty run should be NaN")
	}
}

func TestSummaryJSONNaNIsNull(t *testing.T) {
	b, err := json.Marshal(analyze.Summarize("x", nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"mean":null`) {
		t.Errorf("NaN mean should encode as null: %s", b)
	}
}
