package render_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/marquee/internal/analyze"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/render"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func sampleRun() *model.Run {
	return &model.Run{
		ID:       "run-1",
		Strategy: "hybrid",
		Calls:    6,
		Reports: []model.Report{
			{
				Seed: model.Movie{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-31"},
				Recommendations: []model.Recommendation{
					{
						Movie: model.Movie{ID: 604, Title: "The Matrix Reloaded", ReleaseDate: "2003-05-15", VoteCount: 9000},
						Similarity: model.Similarity{
							Score: 0.8123, Genre: 1, Rating: 0.9,
							SharedGenres: []string{"Action", "Science Fiction"},
							Reason:       "Shared genres: Action, Science Fiction",
						},
					},
					{
						Movie:      model.Movie{ID: 605, Title: "The Matrix | Revolutions"},
						Similarity: model.Similarity{Score: 0.5, Reason: "General similarity"},
					},
				},
			},
			{Seed: model.Movie{ID: 11, Title: "Star Wars"}},
		},
	}
}

func result(kind string, data interface{}) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Command:     "test",
		Data:        data,
	}
}

func renderString(t *testing.T, r *model.Result, format string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := render.Render(&buf, r, format); err != nil {
		t.Fatalf("Render(%s): %v", format, err)
	}
	return buf.String()
}

// ─── Recommendations ──────────────────────────────────────────────────────────

func TestRecommendationsTable(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatTable)

	for _, want := range []string{
		"Recommendations for The Matrix (1999) [603]",
		"The Matrix Reloaded",
		"0.812",
		"Star Wars [11]",
		"(no recommendations)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRecommendationsCSVUsesPairHeader(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatCSV)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 pairs, got %d rows", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(model.PairHeader, ",") {
		t.Errorf("header mismatch: %v", rows[0])
	}
	if rows[1][0] != "603" || rows[1][2] != "604" || rows[1][4] != "0.8123" {
		t.Errorf("first pair row: %v", rows[1])
	}
}

func TestRecommendationsTSV(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatTSV)
	first := strings.SplitN(out, "\n", 2)[0]
	if !strings.HasPrefix(first, "seed_id\tseed_title\t") {
		t.Errorf("TSV header: %q", first)
	}
}

func TestRecommendationsJSONL(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatJSONL)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per pair, got %d", len(lines))
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if rec["seed_id"] != float64(603) || rec["candidate_id"] != float64(605) {
		t.Errorf("second line: %v", rec)
	}
}

func TestRecommendationsJSONEnvelope(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatJSON)
	var env struct {
		Kind string `json:"kind"`
		Data struct {
			Calls   int `json:"external_calls"`
			Reports []struct {
				Recommendations []map[string]interface{} `json:"recommendations"`
			} `json:"reports"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env.Kind != model.KindRecommendations || env.Data.Calls != 6 {
		t.Errorf("envelope: %+v", env)
	}
	if len(env.Data.Reports) != 2 || len(env.Data.Reports[0].Recommendations) != 2 {
		t.Errorf("reports: %+v", env.Data.Reports)
	}
}

func TestRecommendationsMarkdownEscapesPipes(t *testing.T) {
	out := renderString(t, result(model.KindRecommendations, sampleRun()), render.FormatMD)
	if !strings.Contains(out, `The Matrix \| Revolutions`) {
		t.Errorf("pipe should be escaped:\n%s", out)
	}
	if !strings.Contains(out, "_No recommendations._") {
		t.Errorf("empty seed marker missing:\n%s", out)
	}
}

// ─── Other kinds ──────────────────────────────────────────────────────────────

func TestMovieTable(t *testing.T) {
	m := &model.Movie{
		ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-31",
		Genres:   []model.Genre{{ID: 28, Name: "Action"}},
		Keywords: []model.Keyword{{ID: 1, Name: "hacker"}},
		Runtime:  136,
	}
	out := renderString(t, result(model.KindMovie, m), render.FormatTable)
	for _, want := range []string{"The Matrix", "Action", "hacker", "136 min"} {
		if !strings.Contains(out, want) {
			t.Errorf("movie table missing %q:\n%s", want, out)
		}
	}
}

func TestMoviesCSV(t *testing.T) {
	movies := []model.PartialMovie{{ID: 1, Title: "A, B", VoteCount: 10, VoteAverage: 7.5}}
	out := renderString(t, result(model.KindMovies, movies), render.FormatCSV)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if rows[1][1] != "A, B" || rows[1][4] != "7.5" {
		t.Errorf("row: %v", rows[1])
	}
}

func TestRunsJSONL(t *testing.T) {
	runs := []model.RunInfo{{ID: "a"}, {ID: "b"}}
	out := renderString(t, result(model.KindRuns, runs), render.FormatJSONL)
	if n := strings.Count(out, "\n"); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestAnalysisJSONWithNaN(t *testing.T) {
	rs := analyze.AnalyzeRun(&model.Run{ID: "empty"}, 0)
	out := renderString(t, result(model.KindAnalysis, &rs), render.FormatJSON)
	if !strings.Contains(out, `"mean": null`) {
		t.Errorf("NaN should render as null:\n%s", out)
	}
	table := renderString(t, result(model.KindAnalysis, &rs), render.FormatTable)
	if !strings.Contains(table, "score") || !strings.Contains(table, "Run empty") {
		t.Errorf("analysis table:\n%s", table)
	}
}

// ─── Footer ───────────────────────────────────────────────────────────────────

func TestPrintFooter(t *testing.T) {
	r := result(model.KindRecommendations, sampleRun())
	r.Warnings = []string{"seed 11: same_period year 1977: unavailable"}
	r.Stats = model.ResultStats{Items: 2, DurationMs: 15, Calls: 6}

	var quiet bytes.Buffer
	render.PrintFooter(&quiet, r, false)
	if !strings.Contains(quiet.String(), "seed 11") || strings.Contains(quiet.String(), "calls]") {
		t.Errorf("non-verbose footer: %q", quiet.String())
	}

	var verbose bytes.Buffer
	render.PrintFooter(&verbose, r, true)
	if !strings.Contains(verbose.String(), "2 items • 15ms • 6 calls]") {
		t.Errorf("verbose footer: %q", verbose.String())
	}
}
