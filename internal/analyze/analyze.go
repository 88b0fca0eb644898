// Package analyze computes statistical summaries over recommendation runs.
// All functions are pure; no I/O.
package analyze

import (
	"math"
	"sort"

	"github.com/goccy/go-json"

	"github.com/derickschaefer/marquee/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one series of values.
type Summary struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`   // total values
	Missing int     `json:"missing"` // NaN count
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	Skew    float64 `json:"skew"`
}

// Summarize computes descriptive statistics over vals.
// NaN values are excluded from all numeric computations but counted.
func Summarize(label string, vals []float64) Summary {
	s := Summary{Label: label, Count: len(vals)}

	var clean []float64
	for _, v := range vals {
		if math.IsNaN(v) {
			s.Missing++
		} else {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Max = nan, nan, nan, nan
		s.Median, s.P25, s.P75, s.Skew = nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = sumF(clean) / float64(len(clean))
	s.Std = stddevF(clean, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)
	s.Skew = skewness(clean, s.Mean, s.Std)
	return s
}

// MarshalJSON writes NaN statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type wire struct {
		Label   string   `json:"label"`
		Count   int      `json:"count"`
		Missing int      `json:"missing"`
		Mean    *float64 `json:"mean"`
		Std     *float64 `json:"std"`
		Min     *float64 `json:"min"`
		P25     *float64 `json:"p25"`
		Median  *float64 `json:"median"`
		P75     *float64 `json:"p75"`
		Max     *float64 `json:"max"`
		Skew    *float64 `json:"skew"`
	}
	return json.Marshal(wire{
		Label: s.Label, Count: s.Count, Missing: s.Missing,
		Mean: num(s.Mean), Std: num(s.Std), Min: num(s.Min), P25: num(s.P25),
		Median: num(s.Median), P75: num(s.P75), Max: num(s.Max), Skew: num(s.Skew),
	})
}

func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ─── Run analysis ─────────────────────────────────────────────────────────────

// Count is a name with its number of occurrences.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RunSummary describes the recommendations of a whole run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Strategy     string    `json:"strategy"`
	Seeds        int       `json:"seeds"`
	EmptySeeds   int       `json:"empty_seeds"` // seeds with no recommendation
	Pairs        int       `json:"pairs"`
	Calls        int       `json:"external_calls"`
	CallsPerSeed float64   `json:"calls_per_seed"`
	Degraded     int       `json:"degraded_queries"`
	Factors      []Summary `json:"factors"`
	SharedGenres []Count   `json:"shared_genres"`
}

// Factor labels in the order RunSummary.Factors lists them.
var FactorLabels = []string{"score", "genre", "keyword", "content", "rating", "year"}

// AnalyzeRun summarises every scored pair of run. topGenres caps the shared
// genre histogram; zero keeps all of them.
func AnalyzeRun(run *model.Run, topGenres int) RunSummary {
	rs := RunSummary{
		RunID:    run.ID,
		Strategy: run.Strategy,
		Seeds:    len(run.Reports),
		Calls:    run.Calls,
		Degraded: run.Degraded,
	}
	if rs.Seeds > 0 {
		rs.CallsPerSeed = float64(run.Calls) / float64(rs.Seeds)
	}

	cols := make([][]float64, len(FactorLabels))
	genres := make(map[string]int)
	for _, rep := range run.Reports {
		if len(rep.Recommendations) == 0 {
			rs.EmptySeeds++
		}
		for _, rec := range rep.Recommendations {
			rs.Pairs++
			sim := rec.Similarity
			for i, v := range []float64{sim.Score, sim.Genre, sim.Keyword, sim.Content, sim.Rating, sim.Year} {
				cols[i] = append(cols[i], v)
			}
			for _, g := range sim.SharedGenres {
				genres[g]++
			}
		}
	}

	for i, label := range FactorLabels {
		rs.Factors = append(rs.Factors, Summarize(label, cols[i]))
	}

	for name, n := range genres {
		rs.SharedGenres = append(rs.SharedGenres, Count{Name: name, Count: n})
	}
	sort.Slice(rs.SharedGenres, func(i, j int) bool {
		a, b := rs.SharedGenres[i], rs.SharedGenres[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if topGenres > 0 && len(rs.SharedGenres) > topGenres {
		rs.SharedGenres = rs.SharedGenres[:topGenres]
	}
	return rs
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func skewness(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d
	}
	return s * n / ((n - 1) * (n - 2))
}
