package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/derickschaefer/marquee/internal/app"
	"github.com/derickschaefer/marquee/internal/config"
	"github.com/derickschaefer/marquee/internal/model"
)

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestResolveFormatPrecedence(t *testing.T) {
	globalFlags.Format = ""
	if got := resolveFormat(""); got != "table" {
		t.Errorf("fallback: expected table, got %q", got)
	}
	if got := resolveFormat("csv"); got != "csv" {
		t.Errorf("config value: expected csv, got %q", got)
	}
	globalFlags.Format = "json"
	t.Cleanup(func() { globalFlags.Format = "" })
	if got := resolveFormat("csv"); got != "json" {
		t.Errorf("flag should win: expected json, got %q", got)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		3 << 20: "3.0 MB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestPrintSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	printSimpleTable(&buf, []string{"KEY", "VALUE"}, func(add func(...string)) {
		add("strategy", "hybrid")
	})
	out := buf.String()
	if !strings.Contains(out, "KEY") || !strings.Contains(out, "hybrid") {
		t.Errorf("table missing content:\n%s", out)
	}
}

func TestFetchSeedsKeepsOrderAndWarns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/movie/603"):
			_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-31"}`))
		case strings.HasSuffix(r.URL.Path, "/movie/604"):
			_, _ = w.Write([]byte(`{"id":604,"title":"The Matrix Reloaded","release_date":"2003-05-15"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		}
	}))
	defer srv.Close()

	deps := app.New(&config.Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Timeout:     5 * time.Second,
		Rate:        1000,
		Concurrency: 2,
	})

	movies, warnings, calls := fetchSeeds(context.Background(), deps, []int{604, 999, 603})
	if calls != 3 {
		t.Errorf("calls: expected 3, got %d", calls)
	}
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}
	if movies[0].ID != 604 || movies[1].ID != 603 {
		t.Errorf("order not preserved: %d, %d", movies[0].ID, movies[1].ID)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "seed 999") {
		t.Errorf("expected one warning for seed 999, got %v", warnings)
	}
}

func TestCollectSeedIDsHonoursCancel(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":603}]}`))
	}))
	defer srv.Close()

	deps := app.New(&config.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Timeout: 5 * time.Second,
		Rate:    1000,
	})
	recYear, recTop, recPages = 1999, 1, 5
	t.Cleanup(func() { recYear, recTop, recPages = 0, 10, 5 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := collectSeedIDs(ctx, recommendCmd, deps, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("listing should not reach the server after cancel, got %d requests", n)
	}
}

func TestNewResultStats(t *testing.T) {
	r := newResult(model.KindMovies, "discover", []model.PartialMovie{{ID: 1}}, 1, time.Now())
	if r.Kind != model.KindMovies || r.Command != "discover" || r.Stats.Items != 1 {
		t.Errorf("unexpected envelope: %+v", r)
	}
	if r.Stats.DurationMs < 0 {
		t.Errorf("duration should not be negative")
	}
}
