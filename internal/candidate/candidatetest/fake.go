// Package candidatetest provides an in-memory Provider for tests.
package candidatetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/derickschaefer/marquee/internal/model"
)

// ErrUnavailable is returned for endpoints configured to fail.
var ErrUnavailable = errors.New("provider unavailable")

// Provider serves canned responses and records every call it receives.
// Unconfigured lookups return empty results, and detail of an unknown id
// returns an error.
type Provider struct {
	mu sync.Mutex

	Years       map[int][]model.PartialMovie
	YearGenres  map[string][]model.PartialMovie // key: "year/genre"
	Details     map[int]model.Movie
	Similar     map[int][]model.PartialMovie
	Recommended map[int][]model.PartialMovie
	// PageSize splits year listings into pages; 0 returns everything on page 1.
	PageSize int
	// Fail names the endpoints that return ErrUnavailable:
	// "year", "genre", "detail", "similar", "recommended", or "year:<Y>".
	Fail map[string]bool

	calls []string
}

// New returns an empty fake provider.
func New() *Provider {
	return &Provider{
		Years:       make(map[int][]model.PartialMovie),
		YearGenres:  make(map[string][]model.PartialMovie),
		Details:     make(map[int]model.Movie),
		Similar:     make(map[int][]model.PartialMovie),
		Recommended: make(map[int][]model.PartialMovie),
		Fail:        make(map[string]bool),
	}
}

// GenreKey builds the YearGenres key.
func GenreKey(year int, genre string) string { return fmt.Sprintf("%d/%s", year, genre) }

// Calls returns the calls received so far, e.g. "year:1999:1" or "detail:42".
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *Provider) MoviesByYear(_ context.Context, year, page int) (*model.Page, error) {
	p.record(fmt.Sprintf("year:%d:%d", year, page))
	if p.Fail["year"] || p.Fail[fmt.Sprintf("year:%d", year)] {
		return nil, ErrUnavailable
	}
	all := p.Years[year]
	if p.PageSize <= 0 {
		return &model.Page{Page: 1, TotalPages: 1, TotalResults: len(all), Results: all}, nil
	}
	pages := (len(all) + p.PageSize - 1) / p.PageSize
	lo := (page - 1) * p.PageSize
	if lo >= len(all) {
		return &model.Page{Page: page, TotalPages: pages, TotalResults: len(all)}, nil
	}
	hi := min(lo+p.PageSize, len(all))
	return &model.Page{Page: page, TotalPages: pages, TotalResults: len(all), Results: all[lo:hi]}, nil
}

func (p *Provider) MoviesByYearAndGenre(_ context.Context, year int, genre model.Genre, page int) (*model.Page, error) {
	p.record(fmt.Sprintf("genre:%d:%s:%d", year, genre.Name, page))
	if p.Fail["genre"] {
		return nil, ErrUnavailable
	}
	res := p.YearGenres[GenreKey(year, genre.Name)]
	return &model.Page{Page: 1, TotalPages: 1, TotalResults: len(res), Results: res}, nil
}

func (p *Provider) MovieDetail(_ context.Context, id int) (*model.Movie, error) {
	p.record(fmt.Sprintf("detail:%d", id))
	if p.Fail["detail"] {
		return nil, ErrUnavailable
	}
	m, ok := p.Details[id]
	if !ok {
		return nil, fmt.Errorf("movie %d: not found", id)
	}
	return &m, nil
}

func (p *Provider) SimilarMovies(_ context.Context, id int) ([]model.PartialMovie, error) {
	p.record(fmt.Sprintf("similar:%d", id))
	if p.Fail["similar"] {
		return nil, ErrUnavailable
	}
	return p.Similar[id], nil
}

func (p *Provider) RecommendedMovies(_ context.Context, id int) ([]model.PartialMovie, error) {
	p.record(fmt.Sprintf("recommended:%d", id))
	if p.Fail["recommended"] {
		return nil, ErrUnavailable
	}
	return p.Recommended[id], nil
}

// Partials builds minimal discovery records for ids.
func Partials(ids ...int) []model.PartialMovie {
	out := make([]model.PartialMovie, len(ids))
	for i, id := range ids {
		out[i] = model.PartialMovie{ID: id, Title: fmt.Sprintf("Movie %d", id)}
	}
	return out
}
