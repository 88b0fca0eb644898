// Package store provides a thin bbolt wrapper for marquee's run archive.
//
// The archive is write-behind only: a finished recommendation run is saved
// when the user asks for it, and the runs commands read it back. The
// recommendation engine never consults it, so results are always computed
// from live provider data.
//
// Buckets:
//
//	runs       complete runs keyed run:<uuid>
//	run_info   listing summaries keyed run:<uuid>
//	_meta      internal: schema version, created_at
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/marquee/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketRuns     = []byte("runs")
	bucketRunInfo  = []byte("run_info")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"runs", "run_info"}

// ErrRunNotFound is returned when no archived run matches an id.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousID is returned when an id prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id")

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketRunInfo, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

func runKey(id string) []byte { return []byte("run:" + id) }

// PutRun archives a finished run under its id, replacing any previous copy.
func (s *Store) PutRun(run *model.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("archiving run: missing run id")
	}
	full, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	info, err := json.Marshal(run.Info())
	if err != nil {
		return fmt.Errorf("encoding run info: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put(runKey(run.ID), full); err != nil {
			return err
		}
		return tx.Bucket(bucketRunInfo).Put(runKey(run.ID), info)
	})
}

// GetRun retrieves a run by its full id or a unique id prefix.
func (s *Store) GetRun(id string) (*model.Run, error) {
	var run model.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		key, err := resolveKey(tx.Bucket(bucketRuns), id)
		if err != nil {
			return err
		}
		return json.Unmarshal(tx.Bucket(bucketRuns).Get(key), &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the summaries of all archived runs, newest first.
func (s *Store) ListRuns() ([]model.RunInfo, error) {
	var infos []model.RunInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRunInfo).ForEach(func(k, v []byte) error {
			var info model.RunInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			infos = append(infos, info)
			return nil
		})
	})
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].GeneratedAt.After(infos[j].GeneratedAt)
	})
	return infos, err
}

// DeleteRun removes a run by its full id or a unique id prefix and returns
// the full id that was deleted.
func (s *Store) DeleteRun(id string) (string, error) {
	var deleted string
	err := s.db.Update(func(tx *bolt.Tx) error {
		key, err := resolveKey(tx.Bucket(bucketRuns), id)
		if err != nil {
			return err
		}
		deleted = strings.TrimPrefix(string(key), "run:")
		if err := tx.Bucket(bucketRuns).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketRunInfo).Delete(key)
	})
	return deleted, err
}

// resolveKey finds the key for id, accepting a unique prefix.
func resolveKey(b *bolt.Bucket, id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	if b.Get(runKey(id)) != nil {
		return runKey(id), nil
	}
	prefix := runKey(id)
	var match []byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
		if match != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		match = append([]byte(nil), k...)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return match, nil
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		known = known || b == name
	}
	if !known {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// Compact rewrites the database into a fresh file to reclaim pages freed by
// deletes, then reopens it in place. It returns the file size before and
// after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	if fi, err := os.Stat(path); err == nil {
		before = fi.Size()
	}

	tmp := path + ".compact"
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := bolt.Compact(dst, s.db, 1<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return 0, 0, fmt.Errorf("copying data: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, 0, fmt.Errorf("replacing database: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("reopening %s: %w", path, err)
	}
	s.db = db
	if fi, err := os.Stat(path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
