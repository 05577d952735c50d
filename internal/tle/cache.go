package tle

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Cache keeps the last few downloads of one remote catalog on disk, so a run
// can still be planned when the source is unreachable. Files are named
// <key>_<unix seconds>.tle.
type Cache struct {
	dir      string
	key      string
	maxFiles int
}

// NewCache creates a Cache for the catalog named name. A non-positive maxFiles
// keeps five files.
func NewCache(dir, name string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{dir: dir, key: cacheKey(name), maxFiles: maxFiles}
}

// cacheKey reduces a catalog name to a file-name-safe token.
func cacheKey(name string) string {
	key := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, strings.ToLower(name))
	if key == "" {
		return "catalog"
	}
	return key
}

// Write stores data fetched at ts and drops the oldest files beyond maxFiles.
// The file appears under its final name only once completely written.
func (c *Cache) Write(data []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+c.key+"-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	path := filepath.Join(c.dir, c.key+"_"+strconv.FormatInt(ts.Unix(), 10)+".tle")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return c.prune()
}

// LoadLatest returns the newest cached copy and the time it was fetched.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	files, err := c.files()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no cached copy of %s in %s", c.key, c.dir)
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(latest.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, latest.ts, nil
}

type cacheFile struct {
	path string
	ts   time.Time
}

// files lists this catalog's cache files, oldest first.
func (c *Cache) files() ([]cacheFile, error) {
	paths, err := filepath.Glob(filepath.Join(c.dir, c.key+"_*.tle"))
	if err != nil {
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, p := range paths {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), c.key+"_"), ".tle")
		unix, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{path: p, ts: time.Unix(unix, 0).UTC()})
	}
	slices.SortFunc(files, func(a, b cacheFile) int { return a.ts.Compare(b.ts) })
	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.files()
	if err != nil {
		return err
	}
	for len(files) > c.maxFiles {
		if err := os.Remove(files[0].path); err != nil {
			return fmt.Errorf("pruning cache: %w", err)
		}
		files = files[1:]
	}
	return nil
}
