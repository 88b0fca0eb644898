package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/marquee/internal/app"
	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/render"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns the writer a command should print to: the --out file
// when set, otherwise defaultW. The returned close function is always safe
// to call.
func outputWriter(defaultW io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return defaultW, func() error { return nil }, nil
	}
	if dir := filepath.Dir(globalFlags.Out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// writeResult renders result to --out or stdout. The footer goes to stderr
// so piped output stays machine readable.
func writeResult(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	out, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	format := resolveFormat(deps.Config.Format)
	if err := render.Render(out, result, format); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// fetchSeeds looks up the full record of every id concurrently, bounded by
// deps.Config.Concurrency. Movies keep the input order of ids; failed lookups
// are returned as warnings. calls counts every lookup attempted.
func fetchSeeds(ctx context.Context, deps *app.Deps, ids []int) (movies []model.Movie, warnings []string, calls int) {
	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	results := make([]*model.Movie, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			m, err := deps.Client.MovieDetail(gctx, id)
			results[i], errs[i] = m, err
			return nil // a missing seed never cancels the others
		})
	}
	_ = g.Wait()

	for i, m := range results {
		if errs[i] != nil {
			warnings = append(warnings, fmt.Sprintf("seed %d: %v", ids[i], errs[i]))
			continue
		}
		movies = append(movies, *m)
	}
	return movies, warnings, len(ids)
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// newResult wraps data in a Result envelope stamped with the elapsed time
// since start.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
