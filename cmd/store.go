package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/marquee/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local run database",
	Long: `Commands for inspecting and clearing the local bbolt database.

The database holds recommendation runs saved with 'marquee recommend --store'.
It is an archive, not a cache: recommendations are always computed from
fresh TMDB data, and saved runs persist until you clear them.`,
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  marquee store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var (
	storeClearAll    bool
	storeClearBucket string
)

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local database",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the database file after clearing; freed pages are
reused on the next write. Run 'marquee store compact' to reclaim disk space.`,
	Example: `  marquee store clear --all
  marquee store clear --bucket runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll && storeClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <n>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		w := cmd.OutOrStdout()
		if storeClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(w, "✓ Cleared all buckets")
		} else {
			if err := deps.Store.ClearBucket(storeClearBucket); err != nil {
				return fmt.Errorf("clearing bucket %q: %w", storeClearBucket, err)
			}
			fmt.Fprintf(w, "✓ Cleared bucket %q\n", storeClearBucket)
		}
		fmt.Fprintln(w, "  Run 'marquee store compact' to reclaim disk space.")
		return nil
	},
}

// ─── store compact ────────────────────────────────────────────────────────────

var storeCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact copies every live entry into a fresh file and swaps it in place
of the original. The database stays usable afterwards.`,
	Example: `  marquee store compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		// Compact reopens the underlying bolt.DB; the handle stays valid.
		defer deps.Close()

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Compacting %s ...\n", deps.Store.Path())

		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintln(w, "✓ Compaction complete")
		fmt.Fprintf(w, "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(w, "  After:  %s\n", humanBytes(after))
		if saved := before - after; saved > 0 {
			fmt.Fprintf(w, "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(w, "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeCompactCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear all buckets")
	storeClearCmd.Flags().StringVar(&storeClearBucket, "bucket", "",
		"clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
	_ = storeClearCmd.RegisterFlagCompletionFunc("bucket",
		cobra.FixedCompletions(store.AllBuckets, cobra.ShellCompDirectiveNoFileComp))
}
