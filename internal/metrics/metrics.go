// Package metrics records run telemetry in Prometheus format. A Recorder
// owns its registry, so a batch run can dump exactly its own numbers to a
// node_exporter textfile when it finishes.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/tmdb"
)

// Recorder collects provider and run metrics.
type Recorder struct {
	registry *prometheus.Registry

	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	DegradedQueries  *prometheus.CounterVec
	EnrichFailures   prometheus.Counter
	Seeds            prometheus.Counter
	Recommendations  prometheus.Counter
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder returns a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		ProviderCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_provider_calls_total",
				Help: "Provider calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"}, // outcome: "ok", "not_found", "error"
		),
		ProviderDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marquee_provider_call_duration_seconds",
				Help:    "Provider call latency in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		DegradedQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_degraded_queries_total",
				Help: "Candidate sub-queries that failed and contributed nothing",
			},
			[]string{"strategy"},
		),
		EnrichFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "marquee_enrich_failures_total",
			Help: "Candidates excluded because their detail lookup failed",
		}),
		Seeds: f.NewCounter(prometheus.CounterOpts{
			Name: "marquee_seeds_total",
			Help: "Seed movies processed",
		}),
		Recommendations: f.NewCounter(prometheus.CounterOpts{
			Name: "marquee_recommendations_total",
			Help: "Recommendations emitted across all seeds",
		}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "marquee_run_duration_seconds",
			Help: "Wall time of the last recommendation run",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "marquee_last_run_timestamp_seconds",
			Help: "Unix time the last recommendation run finished",
		}),
	}
}

// ObserveRun records the counters of a finished run.
func (r *Recorder) ObserveRun(run *model.Run, elapsed time.Duration) {
	r.DegradedQueries.WithLabelValues(run.Strategy).Add(float64(run.Degraded))
	r.EnrichFailures.Add(float64(run.EnrichFailures))
	r.Seeds.Add(float64(len(run.Reports)))
	r.Recommendations.Add(float64(len(run.Pairs())))
	r.RunDuration.Set(elapsed.Seconds())
	r.LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func (r *Recorder) observe(endpoint string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, tmdb.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	r.ProviderCalls.WithLabelValues(endpoint, outcome).Inc()
	r.ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// ─── Instrumented Provider ───────────────────────────────────────────────────

// Provider wraps a candidate.Provider and records every call.
type Provider struct {
	next candidate.Provider
	rec  *Recorder
}

// Instrument wraps next so that each call is counted and timed by r.
func (r *Recorder) Instrument(next candidate.Provider) *Provider {
	return &Provider{next: next, rec: r}
}

func (p *Provider) MoviesByYear(ctx context.Context, year, page int) (*model.Page, error) {
	start := time.Now()
	res, err := p.next.MoviesByYear(ctx, year, page)
	p.rec.observe("movies_by_year", start, err)
	return res, err
}

func (p *Provider) MoviesByYearAndGenre(ctx context.Context, year int, genre model.Genre, page int) (*model.Page, error) {
	start := time.Now()
	res, err := p.next.MoviesByYearAndGenre(ctx, year, genre, page)
	p.rec.observe("movies_by_genre", start, err)
	return res, err
}

func (p *Provider) MovieDetail(ctx context.Context, id int) (*model.Movie, error) {
	start := time.Now()
	res, err := p.next.MovieDetail(ctx, id)
	p.rec.observe("movie_detail", start, err)
	return res, err
}

func (p *Provider) SimilarMovies(ctx context.Context, id int) ([]model.PartialMovie, error) {
	start := time.Now()
	res, err := p.next.SimilarMovies(ctx, id)
	p.rec.observe("similar", start, err)
	return res, err
}

func (p *Provider) RecommendedMovies(ctx context.Context, id int) ([]model.PartialMovie, error) {
	start := time.Now()
	res, err := p.next.RecommendedMovies(ctx, id)
	p.rec.observe("recommended", start, err)
	return res, err
}
