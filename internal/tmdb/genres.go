package tmdb

import (
	"strings"

	"github.com/derickschaefer/marquee/internal/model"
)

// movieGenres is TMDB's movie genre list. List endpoints return genre ids
// only; names are resolved here so partial records can be scored.
var movieGenres = []model.Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 14, Name: "Fantasy"},
	{ID: 36, Name: "History"},
	{ID: 27, Name: "Horror"},
	{ID: 10402, Name: "Music"},
	{ID: 9648, Name: "Mystery"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Science Fiction"},
	{ID: 10770, Name: "TV Movie"},
	{ID: 53, Name: "Thriller"},
	{ID: 10752, Name: "War"},
	{ID: 37, Name: "Western"},
}

var genreByID = func() map[int]model.Genre {
	m := make(map[int]model.Genre, len(movieGenres))
	for _, g := range movieGenres {
		m[g.ID] = g
	}
	return m
}()

// Genres returns the known movie genres.
func Genres() []model.Genre {
	return append([]model.Genre(nil), movieGenres...)
}

// GenreByName looks up a genre by case-insensitive name.
func GenreByName(name string) (model.Genre, bool) {
	for _, g := range movieGenres {
		if strings.EqualFold(g.Name, strings.TrimSpace(name)) {
			return g, true
		}
	}
	return model.Genre{}, false
}

// genresFromIDs resolves ids in order, skipping unknown ones.
func genresFromIDs(ids []int) []model.Genre {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.Genre, 0, len(ids))
	for _, id := range ids {
		if g, ok := genreByID[id]; ok {
			out = append(out, g)
		}
	}
	return out
}
