package similarity_test

import (
	"fmt"
	"testing"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/similarity"
)

// benchMovie builds a movie with nGenres genres and nKeywords keywords, the
// first half of each shared with every other benchMovie.
func benchMovie(id, nGenres, nKeywords int) model.Movie {
	m := model.Movie{
		ID:          id,
		Title:       fmt.Sprintf("Movie %d", id),
		ReleaseDate: fmt.Sprintf("%d-06-01", 1980+id%40),
		VoteCount:   1000 + id,
		VoteAverage: 5 + float64(id%50)/10,
		Popularity:  float64(id % 150),
	}
	for i := 0; i < nGenres; i++ {
		name := fmt.Sprintf("genre-%d", i)
		if i >= nGenres/2 {
			name = fmt.Sprintf("genre-%d-%d", id, i)
		}
		m.Genres = append(m.Genres, model.Genre{ID: i, Name: name})
	}
	for i := 0; i < nKeywords; i++ {
		name := fmt.Sprintf("kw-%d", i)
		if i >= nKeywords/2 {
			name = fmt.Sprintf("kw-%d-%d", id, i)
		}
		m.Keywords = append(m.Keywords, model.Keyword{ID: i, Name: name})
	}
	return m
}

// BenchmarkScore measures one seed/candidate comparison at typical TMDB
// record sizes (3 genres, 20 keywords).
//
//	go test ./internal/similarity/ -bench=. -benchmem
func BenchmarkScore(b *testing.B) {
	scorer, err := similarity.NewScorer(similarity.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	seed := benchMovie(1, 3, 20)
	cand := benchMovie(2, 3, 20)

	b.ReportAllocs()
	for b.Loop() {
		_ = scorer.Score(seed, cand)
	}
}

// BenchmarkScorePool scores a seed against a hybrid-sized candidate pool.
func BenchmarkScorePool(b *testing.B) {
	scorer, err := similarity.NewScorer(similarity.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	seed := benchMovie(0, 3, 20)
	pool := make([]model.Movie, 120)
	for i := range pool {
		pool[i] = benchMovie(i+1, 3, 20)
	}

	b.ReportAllocs()
	for b.Loop() {
		for _, c := range pool {
			_ = scorer.Score(seed, c)
		}
	}
}
