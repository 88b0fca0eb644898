// Package util provides shared utilities: release date parsing, movie id
// parsing and error aggregation.
package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ─── Date Parsing ─────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a time.Time (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// NormalizeReleaseDate returns the provider release date in a form the
// model can derive a year from. Full dates are validated; partial dates
// (YYYY-MM, YYYY) pass through. Anything else is treated as unknown.
func NormalizeReleaseDate(s string) string {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 10:
		if _, err := ParseDate(s); err != nil {
			return ""
		}
		return s
	case 7:
		if _, err := time.Parse("2006-01", s); err != nil {
			return ""
		}
		return s
	case 4:
		if _, err := strconv.Atoi(s); err != nil {
			return ""
		}
		return s
	default:
		return ""
	}
}

// ─── Movie IDs ────────────────────────────────────────────────────────────────

// ParseMovieID parses a positive integer movie identifier.
func ParseMovieID(s string) (int, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q: expected a positive integer", s)
	}
	return id, nil
}

// ParseMovieIDs parses every argument and reports all invalid ones at once.
func ParseMovieIDs(args []string) ([]int, error) {
	var merr MultiError
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := ParseMovieID(a)
		if err != nil {
			merr.Add(err)
			continue
		}
		ids = append(ids, id)
	}
	if err := merr.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error { return m.Errors }
