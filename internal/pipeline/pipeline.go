// Package pipeline provides helpers for reading seed ids from stdin and
// writing flattened recommendation pairs as JSONL, the canonical pipe format.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/derickschaefer/marquee/internal/model"
	"github.com/derickschaefer/marquee/internal/util"
)

// ReadSeedIDs reads seed movie ids from r, one per line.
// A line is either a bare id ("603") or a JSON object carrying an "id" or
// "seed_id" field, so the output of `marquee discover --format jsonl` and of
// a previous recommend run can be piped straight back in. Blank lines and
// lines starting with # or // are skipped. Ids are returned in input order
// with duplicates removed.
func ReadSeedIDs(r io.Reader) ([]int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	type row struct {
		ID     int `json:"id"`
		SeedID int `json:"seed_id"`
	}

	var ids []int
	seen := make(map[int]bool)
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		var id int
		if strings.HasPrefix(line, "{") {
			var rec row
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
			}
			id = rec.ID
			if id == 0 {
				id = rec.SeedID
			}
			if id <= 0 {
				return nil, fmt.Errorf("line %d: no positive \"id\" or \"seed_id\" field", lineNum)
			}
		} else {
			var err error
			if id, err = util.ParseMovieID(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}

		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no movie ids read from input (is stdin empty?)")
	}
	return ids, nil
}

// WritePairsJSONL writes one JSON object per pair to w.
func WritePairsJSONL(w io.Writer, pairs []model.PairRecord) error {
	enc := json.NewEncoder(w)
	for _, p := range pairs {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// IsTerminal reports whether f is a terminal rather than a pipe or file.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
