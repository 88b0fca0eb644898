package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/derickschaefer/marquee/internal/logging"
)

func TestHandlerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(logging.New(&buf, logging.FormatJSON, slog.LevelDebug)))

	logger.WithGroup("tmdb").Debug("request", "endpoint", "discover/movie", "page", 2, "err", errors.New("boom"))

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["message"] != "request" || rec["level"] != "debug" {
		t.Errorf("record = %v", rec)
	}
	if rec["tmdb.endpoint"] != "discover/movie" || rec["tmdb.page"] != float64(2) {
		t.Errorf("grouped attrs missing: %v", rec)
	}
	if rec["tmdb.err"] != "boom" {
		t.Errorf("error attr = %v", rec["tmdb.err"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(logging.New(&buf, logging.FormatJSON, logging.Level(false, false))))

	logger.Debug("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
	if logging.Level(true, true) != slog.LevelDebug {
		t.Error("debug wins over quiet")
	}
	if logging.Level(false, true) != slog.LevelError {
		t.Error("quiet should only show errors")
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logging.Setup(&buf, logging.FormatConsole, slog.LevelInfo)
	slog.Info("hello", "seed", 603)
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "603") {
		t.Errorf("console output = %q", buf.String())
	}
}
