package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/util"
)

// ─── Discovery ────────────────────────────────────────────────────────────────

// DiscoverOptions are the filters sent with every discovery listing.
type DiscoverOptions struct {
	MinVoteCount   int
	MinVoteAverage float64
	Language       string // e.g. en-US
	Region         string // ISO 3166-1, optional
	SortBy         string
}

// DefaultDiscoverOptions returns popularity-ordered, English listings with
// no vote filters.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{Language: "en-US", SortBy: "popularity.desc"}
}

func (o DiscoverOptions) params() url.Values {
	params := url.Values{}
	params.Set("include_adult", "false")
	params.Set("include_video", "false")
	sortBy := o.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	if o.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(o.MinVoteCount))
	}
	if o.MinVoteAverage > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(o.MinVoteAverage, 'f', -1, 64))
	}
	if o.Language != "" {
		params.Set("language", o.Language)
	}
	if o.Region != "" {
		params.Set("region", o.Region)
	}
	return params
}

// MoviesByYear lists movies whose primary release year is year.
func (c *Client) MoviesByYear(ctx context.Context, year, page int) (*model.Page, error) {
	params := c.discover.params()
	params.Set("primary_release_year", strconv.Itoa(year))
	params.Set("page", strconv.Itoa(max(page, 1)))

	var raw rawPage
	if err := c.get(ctx, "discover/movie", params, &raw); err != nil {
		return nil, fmt.Errorf("movies of %d: %w", year, err)
	}
	return raw.normalize(), nil
}

// MoviesByYearAndGenre lists movies tagged with genre. A year of 0 lists
// every year.
func (c *Client) MoviesByYearAndGenre(ctx context.Context, year int, genre model.Genre, page int) (*model.Page, error) {
	params := c.discover.params()
	params.Set("with_genres", strconv.Itoa(genre.ID))
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}
	params.Set("page", strconv.Itoa(max(page, 1)))

	var raw rawPage
	if err := c.get(ctx, "discover/movie", params, &raw); err != nil {
		return nil, fmt.Errorf("%s movies of %d: %w", genre.Name, year, err)
	}
	return raw.normalize(), nil
}

// TopMoviesByYear returns the n most voted movies released in year. It reads
// up to maxPages pages of the popularity listing, stopping once it holds 2n
// entries, then keeps the n with the highest vote count. pages is the number
// of listing pages requested, failed requests included.
func (c *Client) TopMoviesByYear(ctx context.Context, year, n, maxPages int) (movies []model.PartialMovie, pages int, err error) {
	if n <= 0 {
		return nil, 0, nil
	}
	var all []model.PartialMovie
	seen := make(map[int]struct{})
	for page := 1; page <= maxPages && len(all) < 2*n; page++ {
		res, err := c.MoviesByYear(ctx, year, page)
		pages++
		if err != nil {
			if len(all) > 0 {
				break // keep what we have
			}
			return nil, pages, err
		}
		for _, m := range res.Results {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			all = append(all, m)
		}
		if page >= res.TotalPages {
			break
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].VoteCount > all[j].VoteCount
	})
	if len(all) > n {
		all = all[:n]
	}
	return all, pages, nil
}

// ─── Movies ───────────────────────────────────────────────────────────────────

// MovieDetail fetches the complete record of a movie, keywords included.
// Returns an error wrapping ErrNotFound for unknown ids.
func (c *Client) MovieDetail(ctx context.Context, id int) (*model.Movie, error) {
	params := url.Values{}
	params.Set("append_to_response", "keywords")
	if c.discover.Language != "" {
		params.Set("language", c.discover.Language)
	}

	var raw rawMovie
	if err := c.get(ctx, "movie/"+strconv.Itoa(id), params, &raw); err != nil {
		return nil, fmt.Errorf("movie %d: %w", id, err)
	}
	m := raw.movie()
	return &m, nil
}

// SimilarMovies returns TMDB's "similar" listing for a movie (first page).
func (c *Client) SimilarMovies(ctx context.Context, id int) ([]model.PartialMovie, error) {
	return c.related(ctx, id, "similar")
}

// RecommendedMovies returns TMDB's "recommendations" listing for a movie
// (first page).
func (c *Client) RecommendedMovies(ctx context.Context, id int) ([]model.PartialMovie, error) {
	return c.related(ctx, id, "recommendations")
}

func (c *Client) related(ctx context.Context, id int, kind string) ([]model.PartialMovie, error) {
	params := url.Values{}
	params.Set("page", "1")
	if c.discover.Language != "" {
		params.Set("language", c.discover.Language)
	}
	var raw rawPage
	if err := c.get(ctx, fmt.Sprintf("movie/%d/%s", id, kind), params, &raw); err != nil {
		return nil, fmt.Errorf("%s for movie %d: %w", kind, id, err)
	}
	return raw.normalize().Results, nil
}

// ─── Internal helpers ─────────────────────────────────────────────────────────

type rawGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type rawKeyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type rawMovie struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	ReleaseDate  string     `json:"release_date"`
	VoteCount    int        `json:"vote_count"`
	VoteAverage  float64    `json:"vote_average"`
	Popularity   float64    `json:"popularity"`
	Overview     string     `json:"overview"`
	PosterPath   string     `json:"poster_path"`
	BackdropPath string     `json:"backdrop_path"`
	GenreIDs     []int      `json:"genre_ids"`
	Genres       []rawGenre `json:"genres"`
	Runtime      int        `json:"runtime"`
	Tagline      string     `json:"tagline"`
	IMDBID       string     `json:"imdb_id"`
	Keywords     *struct {
		Keywords []rawKeyword `json:"keywords"`
	} `json:"keywords"`
}

type rawPage struct {
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Results      []rawMovie `json:"results"`
}

func (r rawPage) normalize() *model.Page {
	p := &model.Page{
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
		Results:      make([]model.PartialMovie, 0, len(r.Results)),
	}
	for _, m := range r.Results {
		p.Results = append(p.Results, m.partial())
	}
	return p
}

func (r rawMovie) genres() []model.Genre {
	if len(r.Genres) > 0 {
		out := make([]model.Genre, len(r.Genres))
		for i, g := range r.Genres {
			out[i] = model.Genre{ID: g.ID, Name: g.Name}
		}
		return out
	}
	return genresFromIDs(r.GenreIDs)
}

func (r rawMovie) keywords() []model.Keyword {
	if r.Keywords == nil {
		return nil
	}
	out := make([]model.Keyword, len(r.Keywords.Keywords))
	for i, k := range r.Keywords.Keywords {
		out[i] = model.Keyword{ID: k.ID, Name: k.Name}
	}
	return out
}

func (r rawMovie) partial() model.PartialMovie {
	return model.PartialMovie{
		ID:           r.ID,
		Title:        r.Title,
		ReleaseDate:  util.NormalizeReleaseDate(r.ReleaseDate),
		VoteCount:    r.VoteCount,
		VoteAverage:  clampRating(r.VoteAverage),
		Popularity:   r.Popularity,
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		Genres:       r.genres(),
		Keywords:     r.keywords(),
	}
}

func (r rawMovie) movie() model.Movie {
	genres := r.genres()
	if genres == nil {
		genres = []model.Genre{}
	}
	keywords := r.keywords()
	if keywords == nil {
		keywords = []model.Keyword{}
	}
	return model.Movie{
		ID:           r.ID,
		Title:        r.Title,
		ReleaseDate:  util.NormalizeReleaseDate(r.ReleaseDate),
		VoteCount:    r.VoteCount,
		VoteAverage:  clampRating(r.VoteAverage),
		Popularity:   r.Popularity,
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		Genres:       genres,
		Keywords:     keywords,
		Runtime:      r.Runtime,
		Tagline:      r.Tagline,
		IMDBID:       r.IMDBID,
	}
}

func clampRating(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}
