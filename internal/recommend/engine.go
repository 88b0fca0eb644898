// Package recommend orchestrates a recommendation run: for every seed it
// selects a candidate pool, enriches incomplete candidates, filters, scores,
// ranks and truncates, while accounting for every provider call made.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/similarity"
)

// ErrInvalidConfig is returned, before any provider call, when run options
// are unusable.
var ErrInvalidConfig = errors.New("invalid recommendation config")

// Options configures one run.
type Options struct {
	// Limit is the number of recommendations kept per seed. Must be > 0.
	Limit int
	// Strategy names the candidate selection strategy; empty selects hybrid.
	Strategy string
	// MinVoteCount drops candidates with fewer votes. Must be >= 0.
	MinVoteCount int
}

// Stage is a step of the per-seed pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageSelecting
	StageEnriching
	StageScoring
	StageRanked
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSelecting:
		return "selecting"
	case StageEnriching:
		return "enriching"
	case StageScoring:
		return "scoring"
	case StageRanked:
		return "ranked"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// StageFunc is notified of every stage transition.
type StageFunc func(seed model.Movie, stage Stage)

// Recorder receives the finished run, e.g. to export telemetry.
type Recorder interface {
	ObserveRun(run *model.Run, elapsed time.Duration)
}

// Engine runs recommendations against a provider. It keeps no state between
// runs and may be reused.
type Engine struct {
	provider  candidate.Provider
	scorer    *similarity.Scorer
	selection candidate.Options
	onStage   StageFunc
	recorder  Recorder
}

// NewEngine returns an Engine using provider for lookups and scorer for
// ranking.
func NewEngine(provider candidate.Provider, scorer *similarity.Scorer) *Engine {
	return &Engine{provider: provider, scorer: scorer}
}

// WithSelection overrides the candidate selection bounds and returns e.
func (e *Engine) WithSelection(opts candidate.Options) *Engine {
	e.selection = opts
	return e
}

// OnStage registers fn for stage transitions and returns e.
func (e *Engine) OnStage(fn StageFunc) *Engine {
	e.onStage = fn
	return e
}

// WithRecorder registers r to receive each finished run and returns e.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

func (e *Engine) validate(opts Options) (*candidate.Strategy, error) {
	if e.provider == nil || e.scorer == nil {
		return nil, fmt.Errorf("%w: engine needs a provider and a scorer", ErrInvalidConfig)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, opts.Limit)
	}
	if opts.MinVoteCount < 0 {
		return nil, fmt.Errorf("%w: min vote count must not be negative, got %d", ErrInvalidConfig, opts.MinVoteCount)
	}
	kind, err := candidate.ParseKind(opts.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	strategy, err := candidate.New(kind, e.provider, e.selection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return strategy, nil
}

// Recommend produces one report per seed, in seed order. Provider failures
// degrade the affected sub-query or candidate and are reported as warnings;
// only invalid options or a cancelled context return an error. On
// cancellation the reports completed so far are returned with the error.
func (e *Engine) Recommend(ctx context.Context, seeds []model.Movie, opts Options) (*model.Run, error) {
	strategy, err := e.validate(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	run := &model.Run{
		ID:           uuid.NewString(),
		GeneratedAt:  start.UTC(),
		Strategy:     strategy.Kind().String(),
		Limit:        opts.Limit,
		MinVoteCount: opts.MinVoteCount,
		Reports:      make([]model.Report, 0, len(seeds)),
	}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		report := e.recommendOne(ctx, strategy, seed, opts, run)
		if err := ctx.Err(); err != nil {
			// the seed in flight saw a dead context; its report is incomplete
			return run, err
		}
		run.Reports = append(run.Reports, report)
	}

	if e.recorder != nil {
		e.recorder.ObserveRun(run, time.Since(start))
	}
	slog.Debug("recommendation run complete",
		"run", run.ID,
		"strategy", run.Strategy,
		"seeds", len(seeds),
		"calls", run.Calls,
		"degraded", run.Degraded,
		"enrich_failures", run.EnrichFailures,
	)
	return run, nil
}

func (e *Engine) stage(seed model.Movie, s Stage) {
	if e.onStage != nil {
		e.onStage(seed, s)
	}
}

func (e *Engine) recommendOne(ctx context.Context, strategy *candidate.Strategy, seed model.Movie, opts Options, run *model.Run) model.Report {
	e.stage(seed, StageIdle)
	e.stage(seed, StageSelecting)
	pool, tally := strategy.Select(ctx, seed)
	run.Calls += tally.Calls
	run.Degraded += tally.Degraded
	for _, err := range tally.Errors {
		run.Warnings = append(run.Warnings, fmt.Sprintf("seed %d: %v", seed.ID, err))
	}

	e.stage(seed, StageEnriching)
	movies := e.enrich(ctx, seed, pool.Movies(), run)

	e.stage(seed, StageScoring)
	recs := make([]model.Recommendation, 0, len(movies))
	for _, m := range movies {
		if m.VoteCount < opts.MinVoteCount {
			continue
		}
		recs = append(recs, model.Recommendation{Movie: m, Similarity: e.scorer.Score(seed, m)})
	}

	Rank(recs)
	if len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	e.stage(seed, StageRanked)
	return model.Report{Seed: seed, Recommendations: recs}
}

// enrich turns partial candidates into complete movies. Candidates that
// already carry genres and keywords cost nothing; the rest cost one detail
// call each. A failed call excludes the candidate. Enrichment stops once ctx
// is done.
func (e *Engine) enrich(ctx context.Context, seed model.Movie, partials []model.PartialMovie, run *model.Run) []model.Movie {
	out := make([]model.Movie, 0, len(partials))
	for _, p := range partials {
		if ctx.Err() != nil {
			break
		}
		if m, ok := p.Complete(); ok {
			out = append(out, m)
			continue
		}
		detail, err := e.provider.MovieDetail(ctx, p.ID)
		run.Calls++
		if err != nil {
			run.EnrichFailures++
			run.Warnings = append(run.Warnings, fmt.Sprintf("seed %d: candidate %d excluded: %v", seed.ID, p.ID, err))
			slog.Debug("enrichment failed", "seed", seed.ID, "candidate", p.ID, "err", err)
			continue
		}
		out = append(out, *detail)
	}
	return out
}

// Rank sorts recommendations by score, highest first, breaking ties by
// ascending movie id.
func Rank(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		si, sj := recs[i].Similarity.Score, recs[j].Similarity.Score
		if si != sj {
			return si > sj
		}
		return recs[i].Movie.ID < recs[j].Movie.ID
	})
}
