// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/marquee/internal/analyze"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/pipeline"
	"github.com/derickschaefer/marquee/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every supported --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one object per line: one per pair for recommendations,
// one per element for lists.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case *model.Run:
		return pipeline.WritePairsJSONL(w, data.Pairs())
	case []model.PartialMovie:
		for _, m := range data {
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
		return nil
	case []model.RunInfo:
		for _, r := range data {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case []model.Genre:
		for _, g := range data {
			if err := enc.Encode(g); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderTable(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Movie:
		return renderMovieTable(w, data)
	case []model.PartialMovie:
		return renderMoviesTable(w, data)
	case *model.Run:
		return renderRunTable(w, data)
	case []model.RunInfo:
		return renderRunsTable(w, data)
	case *analyze.RunSummary:
		return renderAnalysisTable(w, data)
	case []model.Genre:
		tw := newTable(w, []string{"ID", "NAME"})
		for _, g := range data {
			tw.Append([]string{strconv.Itoa(g.ID), g.Name})
		}
		tw.Render()
		return nil
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func renderMovieTable(w io.Writer, m *model.Movie) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	tw.SetColWidth(80)
	tw.SetAutoWrapText(true)

	rows := [][]string{
		{"ID", strconv.Itoa(m.ID)},
		{"Title", m.Title},
		{"Release Date", m.ReleaseDate},
		{"Genres", strings.Join(m.GenreNames(), ", ")},
		{"Votes", fmt.Sprintf("%d (avg %.1f)", m.VoteCount, m.VoteAverage)},
		{"Popularity", formatValue(m.Popularity)},
	}
	if m.Runtime > 0 {
		rows = append(rows, []string{"Runtime", fmt.Sprintf("%d min", m.Runtime)})
	}
	if m.IMDBID != "" {
		rows = append(rows, []string{"IMDb", m.IMDBID})
	}
	if m.Tagline != "" {
		rows = append(rows, []string{"Tagline", m.Tagline})
	}
	if kw := m.KeywordNames(); len(kw) > 0 {
		rows = append(rows, []string{"Keywords", util.Truncate(strings.Join(kw, ", "), 200)})
	}
	if m.Overview != "" {
		rows = append(rows, []string{"Overview", util.Truncate(m.Overview, 200)})
	}
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

func renderMoviesTable(w io.Writer, movies []model.PartialMovie) error {
	tw := newTable(w, []string{"ID", "TITLE", "RELEASED", "VOTES", "RATING", "POPULARITY"})
	tw.SetColWidth(50)
	for _, m := range movies {
		tw.Append([]string{
			strconv.Itoa(m.ID),
			util.Truncate(m.Title, 50),
			m.ReleaseDate,
			strconv.Itoa(m.VoteCount),
			fmt.Sprintf("%.1f", m.VoteAverage),
			formatValue(m.Popularity),
		})
	}
	tw.Render()
	return nil
}

func renderRunTable(w io.Writer, run *model.Run) error {
	for i, rep := range run.Reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Recommendations for %s\n", seedLabel(rep.Seed))
		if len(rep.Recommendations) == 0 {
			fmt.Fprintln(w, "  (no recommendations)")
			continue
		}
		tw := newTable(w, []string{"#", "ID", "TITLE", "YEAR", "SCORE", "GENRE", "KEYWORD", "RATING", "ERA", "REASON"})
		for rank, rec := range rep.Recommendations {
			sim := rec.Similarity
			tw.Append([]string{
				strconv.Itoa(rank + 1),
				strconv.Itoa(rec.Movie.ID),
				util.Truncate(rec.Movie.Title, 40),
				yearLabel(rec.Movie),
				formatScore(sim.Score),
				formatScore(sim.Genre),
				formatScore(sim.Keyword),
				formatScore(sim.Rating),
				formatScore(sim.Year),
				util.Truncate(sim.Reason, 60),
			})
		}
		tw.Render()
	}
	return nil
}

func renderRunsTable(w io.Writer, runs []model.RunInfo) error {
	tw := newTable(w, []string{"ID", "GENERATED", "STRATEGY", "SEEDS", "PAIRS", "CALLS"})
	for _, r := range runs {
		tw.Append([]string{
			r.ID,
			r.GeneratedAt.Local().Format("2006-01-02 15:04"),
			r.Strategy,
			strconv.Itoa(r.Seeds),
			strconv.Itoa(r.Pairs),
			strconv.Itoa(r.Calls),
		})
	}
	tw.Render()
	return nil
}

func renderAnalysisTable(w io.Writer, rs *analyze.RunSummary) error {
	fmt.Fprintf(w, "Run %s (%s): %d seeds, %d pairs, %d calls (%.1f per seed), %d degraded\n\n",
		rs.RunID, rs.Strategy, rs.Seeds, rs.Pairs, rs.Calls, rs.CallsPerSeed, rs.Degraded)

	tw := newTable(w, []string{"FACTOR", "MEAN", "STD", "MIN", "P25", "MEDIAN", "P75", "MAX"})
	for _, f := range rs.Factors {
		tw.Append([]string{
			f.Label,
			formatScore(f.Mean), formatScore(f.Std), formatScore(f.Min),
			formatScore(f.P25), formatScore(f.Median), formatScore(f.P75),
			formatScore(f.Max),
		})
	}
	tw.Render()

	if len(rs.SharedGenres) > 0 {
		fmt.Fprintln(w)
		gt := newTable(w, []string{"SHARED GENRE", "PAIRS"})
		for _, g := range rs.SharedGenres {
			gt.Append([]string{g.Name, strconv.Itoa(g.Count)})
		}
		gt.Render()
	}
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch data := result.Data.(type) {
	case *model.Run:
		_ = cw.Write(model.PairHeader)
		for _, p := range data.Pairs() {
			_ = cw.Write(p.Row())
		}
	case []model.PartialMovie:
		_ = cw.Write([]string{"id", "title", "release_date", "vote_count", "vote_average", "popularity"})
		for _, m := range data {
			_ = cw.Write([]string{
				strconv.Itoa(m.ID), m.Title, m.ReleaseDate, strconv.Itoa(m.VoteCount),
				strconv.FormatFloat(m.VoteAverage, 'f', -1, 64),
				strconv.FormatFloat(m.Popularity, 'f', -1, 64),
			})
		}
	case *model.Movie:
		_ = cw.Write([]string{"field", "value"})
		_ = cw.Write([]string{"id", strconv.Itoa(data.ID)})
		_ = cw.Write([]string{"title", data.Title})
		_ = cw.Write([]string{"release_date", data.ReleaseDate})
		_ = cw.Write([]string{"genres", strings.Join(data.GenreNames(), ", ")})
		_ = cw.Write([]string{"keywords", strings.Join(data.KeywordNames(), ", ")})
		_ = cw.Write([]string{"vote_count", strconv.Itoa(data.VoteCount)})
		_ = cw.Write([]string{"vote_average", strconv.FormatFloat(data.VoteAverage, 'f', -1, 64)})
		_ = cw.Write([]string{"popularity", strconv.FormatFloat(data.Popularity, 'f', -1, 64)})
	case []model.RunInfo:
		_ = cw.Write([]string{"id", "generated_at", "strategy", "seeds", "pairs", "external_calls"})
		for _, r := range data {
			_ = cw.Write([]string{
				r.ID, r.GeneratedAt.UTC().Format(time.RFC3339), r.Strategy,
				strconv.Itoa(r.Seeds), strconv.Itoa(r.Pairs), strconv.Itoa(r.Calls),
			})
		}
	case *analyze.RunSummary:
		_ = cw.Write([]string{"factor", "count", "mean", "std", "min", "p25", "median", "p75", "max"})
		for _, f := range data.Factors {
			_ = cw.Write([]string{
				f.Label, strconv.Itoa(f.Count),
				formatScore(f.Mean), formatScore(f.Std), formatScore(f.Min),
				formatScore(f.P25), formatScore(f.Median), formatScore(f.P75),
				formatScore(f.Max),
			})
		}
	case []model.Genre:
		_ = cw.Write([]string{"id", "name"})
		for _, g := range data {
			_ = cw.Write([]string{strconv.Itoa(g.ID), g.Name})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Run:
		for i, rep := range data.Reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "### %s\n\n", mdEscape(seedLabel(rep.Seed)))
			if len(rep.Recommendations) == 0 {
				fmt.Fprintln(w, "_No recommendations._")
				continue
			}
			fmt.Fprintf(w, "| # | TITLE | YEAR | SCORE | REASON |\n|---|----|----|----|----|\n")
			for rank, rec := range rep.Recommendations {
				fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n",
					rank+1, mdEscape(rec.Movie.Title), yearLabel(rec.Movie),
					formatScore(rec.Similarity.Score), mdEscape(rec.Similarity.Reason))
			}
		}
		return nil
	case []model.PartialMovie:
		fmt.Fprintf(w, "| ID | TITLE | RELEASED | VOTES | RATING |\n|----|----|----|----|----|\n")
		for _, m := range data {
			fmt.Fprintf(w, "| %d | %s | %s | %d | %.1f |\n",
				m.ID, mdEscape(util.Truncate(m.Title, 50)), m.ReleaseDate, m.VoteCount, m.VoteAverage)
		}
		return nil
	case []model.RunInfo:
		fmt.Fprintf(w, "| ID | GENERATED | STRATEGY | SEEDS | PAIRS | CALLS |\n|----|----|----|----|----|----|\n")
		for _, r := range data {
			fmt.Fprintf(w, "| %s | %s | %s | %d | %d | %d |\n",
				r.ID, r.GeneratedAt.UTC().Format(time.RFC3339), r.Strategy, r.Seeds, r.Pairs, r.Calls)
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %d calls]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			result.Stats.Calls,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a measurement for display.
// Always shows at least one decimal place (e.g. 4.0, not 4).
// Trims unnecessary trailing zeros beyond the first (e.g. 3.400000 → 3.4).
// NaN renders as ".".
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	s := strings.TrimRight(fmt.Sprintf("%.6f", v), "0")
	if strings.HasSuffix(s, ".") {
		s += "0" // "4." → "4.0"
	}
	return s
}

// formatScore renders a similarity factor with 3 decimals; NaN renders as ".".
func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func yearLabel(m model.Movie) string {
	if y, ok := m.ReleaseYear(); ok {
		return strconv.Itoa(y)
	}
	return "?"
}

func seedLabel(m model.Movie) string {
	if y, ok := m.ReleaseYear(); ok {
		return fmt.Sprintf("%s (%d) [%d]", m.Title, y, m.ID)
	}
	return fmt.Sprintf("%s [%d]", m.Title, m.ID)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
