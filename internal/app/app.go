// Package app wires together configuration, the API client, and other
// dependencies into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/derickschaefer/marquee/internal/candidate"
	"github.com/derickschaefer/marquee/internal/config"
	"github.com/derickschaefer/marquee/internal/metrics"
	"github.com/derickschaefer/marquee/internal/recommend"
	"github.com/derickschaefer/marquee/internal/similarity"
	"github.com/derickschaefer/marquee/internal/store"
	"github.com/derickschaefer/marquee/internal/tmdb"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is opened on demand by RequireStore.
type Deps struct {
	Config  *config.Config
	Client  *tmdb.Client
	Metrics *metrics.Recorder
	Store   *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := tmdb.NewClient(
		cfg.APIKey,
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	).WithDiscover(cfg.Discover())
	return &Deps{
		Config:  cfg,
		Client:  client,
		Metrics: metrics.NewRecorder(),
	}
}

// Provider returns the TMDB client wrapped with call metrics.
func (d *Deps) Provider() candidate.Provider {
	return d.Metrics.Instrument(d.Client)
}

// Engine builds a recommendation engine from the resolved configuration.
// Every provider call the engine makes is recorded in d.Metrics.
func (d *Deps) Engine() (*recommend.Engine, error) {
	scorer, err := similarity.NewScorer(d.Config.Scoring())
	if err != nil {
		return nil, err
	}
	return recommend.NewEngine(d.Provider(), scorer).
		WithSelection(d.Config.Selection()).
		WithRecorder(d.Metrics), nil
}

// RequireStore opens the local database if it is not already open.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set db_path or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
