package model

import (
	"strconv"
	"strings"
)

// maxExportKeywords caps the shared keyword list in flattened exports.
const maxExportKeywords = 10

// PairHeader is the column order of a flattened (seed, candidate) export.
// Downstream spreadsheets depend on it; append new columns at the end only.
var PairHeader = []string{
	"seed_id",
	"seed_title",
	"candidate_id",
	"candidate_title",
	"similarity_score",
	"genre_similarity",
	"keyword_similarity",
	"content_similarity",
	"rating_similarity",
	"year_similarity",
	"shared_genres",
	"shared_keywords",
	"similarity_reason",
	"vote_count",
	"vote_average",
	"popularity",
	"release_date",
	"release_year",
	"runtime",
	"imdb_id",
}

// PairRecord is one flattened row of a run: a seed, one of its ranked
// candidates and the similarity between them.
type PairRecord struct {
	SeedID            int     `json:"seed_id"`
	SeedTitle         string  `json:"seed_title"`
	CandidateID       int     `json:"candidate_id"`
	CandidateTitle    string  `json:"candidate_title"`
	SimilarityScore   float64 `json:"similarity_score"`
	GenreSimilarity   float64 `json:"genre_similarity"`
	KeywordSimilarity float64 `json:"keyword_similarity"`
	ContentSimilarity float64 `json:"content_similarity"`
	RatingSimilarity  float64 `json:"rating_similarity"`
	YearSimilarity    float64 `json:"year_similarity"`
	SharedGenres      string  `json:"shared_genres"`
	SharedKeywords    string  `json:"shared_keywords"`
	SimilarityReason  string  `json:"similarity_reason"`
	VoteCount         int     `json:"vote_count"`
	VoteAverage       float64 `json:"vote_average"`
	Popularity        float64 `json:"popularity"`
	ReleaseDate       string  `json:"release_date"`
	ReleaseYear       int     `json:"release_year,omitempty"`
	Runtime           int     `json:"runtime,omitempty"`
	IMDBID            string  `json:"imdb_id,omitempty"`
}

// NewPairRecord flattens one recommendation of seed.
func NewPairRecord(seed Movie, rec Recommendation) PairRecord {
	kw := rec.Similarity.SharedKeywords
	if len(kw) > maxExportKeywords {
		kw = kw[:maxExportKeywords]
	}
	year, _ := rec.Movie.ReleaseYear()
	return PairRecord{
		SeedID:            seed.ID,
		SeedTitle:         seed.Title,
		CandidateID:       rec.Movie.ID,
		CandidateTitle:    rec.Movie.Title,
		SimilarityScore:   rec.Similarity.Score,
		GenreSimilarity:   rec.Similarity.Genre,
		KeywordSimilarity: rec.Similarity.Keyword,
		ContentSimilarity: rec.Similarity.Content,
		RatingSimilarity:  rec.Similarity.Rating,
		YearSimilarity:    rec.Similarity.Year,
		SharedGenres:      strings.Join(rec.Similarity.SharedGenres, ", "),
		SharedKeywords:    strings.Join(kw, ", "),
		SimilarityReason:  rec.Similarity.Reason,
		VoteCount:         rec.Movie.VoteCount,
		VoteAverage:       rec.Movie.VoteAverage,
		Popularity:        rec.Movie.Popularity,
		ReleaseDate:       rec.Movie.ReleaseDate,
		ReleaseYear:       year,
		Runtime:           rec.Movie.Runtime,
		IMDBID:            rec.Movie.IMDBID,
	}
}

// Row returns the record as strings in PairHeader order.
// Scores are written with 4 decimals; unknown year and runtime are blank.
func (p PairRecord) Row() []string {
	return []string{
		strconv.Itoa(p.SeedID),
		p.SeedTitle,
		strconv.Itoa(p.CandidateID),
		p.CandidateTitle,
		score(p.SimilarityScore),
		score(p.GenreSimilarity),
		score(p.KeywordSimilarity),
		score(p.ContentSimilarity),
		score(p.RatingSimilarity),
		score(p.YearSimilarity),
		p.SharedGenres,
		p.SharedKeywords,
		p.SimilarityReason,
		strconv.Itoa(p.VoteCount),
		strconv.FormatFloat(p.VoteAverage, 'f', -1, 64),
		strconv.FormatFloat(p.Popularity, 'f', -1, 64),
		p.ReleaseDate,
		optionalInt(p.ReleaseYear),
		optionalInt(p.Runtime),
		p.IMDBID,
	}
}

func score(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
