// Package chart renders ASCII bar charts of similarity scores in the terminal.
//
//   - Bar: one labelled bar per value, e.g. the ranked scores of one seed
//   - Histogram: the distribution of many values, bucketed into bins
//
// NaN values are skipped, never drawn as zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ─── Bar ─────────────────────────────────────────────────────────────────────

// Item is one labelled bar.
type Item struct {
	Label string
	Value float64
}

// BarOptions controls bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars caps the bars drawn; the first MaxBars items are kept.
	// If 0, no limit is applied.
	MaxBars int
	// Max is the value drawn as a full-width bar. If 0, the largest value is used.
	Max float64
}

// Bar renders a horizontal bar chart of items to w, one bar per item, in
// the given order. Bars grow from zero; negative values draw as empty.
//
// Output example:
//
//	The Matrix (1999)
//	The Matrix Reloaded     0.83  ████████████████████
//	Dark City               0.71  █████████████████
func Bar(w io.Writer, title string, items []Item, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	var valid []Item
	for _, it := range items {
		if !math.IsNaN(it.Value) {
			valid = append(valid, it)
		}
	}
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: no values to render")
	}
	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[:opts.MaxBars]
	}

	maxVal := opts.Max
	if maxVal <= 0 {
		for _, it := range valid {
			maxVal = math.Max(maxVal, it.Value)
		}
	}
	if maxVal <= 0 {
		maxVal = 1 // all zero: draw minimum bars
	}

	labelWidth, valWidth := 0, 0
	for _, it := range valid {
		labelWidth = max(labelWidth, len([]rune(it.Label)))
		valWidth = max(valWidth, len(formatFloat(it.Value)))
	}
	// Long titles get truncated so the bars keep at least a quarter of the row
	labelWidth = min(labelWidth, totalWidth/2)

	barAreaWidth := max(totalWidth-labelWidth-valWidth-4, 4)

	if title != "" {
		fmt.Fprintln(w, title)
	}
	for _, it := range valid {
		barLen := 0
		if it.Value > 0 {
			barLen = int(math.Round(it.Value / maxVal * float64(barAreaWidth)))
			barLen = min(max(barLen, 1), barAreaWidth)
		}
		fmt.Fprintf(w, "%s  %*s  %s\n",
			padLabel(it.Label, labelWidth),
			valWidth, formatFloat(it.Value),
			strings.Repeat("█", barLen),
		)
	}
	return nil
}

// ─── Histogram ───────────────────────────────────────────────────────────────

// HistogramOptions controls histogram rendering.
type HistogramOptions struct {
	// Bins is the number of equal-width buckets. If 0, 10 is used.
	Bins int
	// Min and Max bound the bucketed range. When both are 0 the range of
	// the data is used.
	Min, Max float64
	// Width is passed through to Bar.
	Width int
}

// Histogram buckets values into equal-width bins over [Min, Max] and draws
// one bar per bin, labelled with its range and sized by its count. Values
// outside the range are clamped into the first or last bin.
func Histogram(w io.Writer, title string, values []float64, opts HistogramOptions) error {
	var valid []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("chart histogram: no values to render")
	}

	bins := opts.Bins
	if bins <= 0 {
		bins = 10
	}
	lo, hi := opts.Min, opts.Max
	if lo == 0 && hi == 0 {
		lo, hi = valid[0], valid[0]
		for _, v := range valid[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi <= lo {
		hi = lo + 1 // single value: one populated bin
	}

	counts := make([]int, bins)
	step := (hi - lo) / float64(bins)
	for _, v := range valid {
		i := int((v - lo) / step)
		counts[min(max(i, 0), bins-1)]++
	}

	items := make([]Item, bins)
	for i, c := range counts {
		from := lo + float64(i)*step
		items[i] = Item{
			Label: fmt.Sprintf("%s–%s", formatFloat(from), formatFloat(from+step)),
			Value: float64(c),
		}
	}
	return Bar(w, fmt.Sprintf("%s  (n=%d)", title, len(valid)), items, BarOptions{Width: opts.Width})
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func padLabel(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}

// formatFloat formats a value label: no unnecessary trailing zeros, at least
// one decimal place for fractions, plain integers for whole counts.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
