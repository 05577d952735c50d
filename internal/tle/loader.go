package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Source names one catalog and where to read it from (file path or http(s) URL).
type Source struct {
	Name     string
	Location string
}

// LoaderConfig configures how catalogs are read.
type LoaderConfig struct {
	Match        MatchMode
	CacheDir     string        // cache for remote catalogs
	MaxFiles     int           // cached files kept per remote catalog
	FetchTimeout time.Duration // HTTP timeout for remote catalogs
}

// Loader reads catalogs from local files or remote sources before a run starts.
type Loader struct {
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig, logger *slog.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// isRemote reports whether location should be fetched over HTTP.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load reads and parses one catalog.
// Remote catalogs are fetched and cached; when the fetch fails the newest
// cached copy is used instead.
func (l *Loader) Load(ctx context.Context, src Source) (*Catalog, error) {
	var (
		data     []byte
		loadedAt time.Time
		err      error
	)
	if isRemote(src.Location) {
		data, loadedAt, err = l.loadRemote(ctx, src)
	} else {
		data, loadedAt, err = l.loadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", src.Name, err)
	}

	entries, err := Parse(bytes.NewReader(data), l.logger.With("catalog", src.Name))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", src.Name, err)
	}

	cat := NewCatalog(src.Name, src.Location, loadedAt, l.cfg.Match, entries)
	attrs := []any{
		"catalog", src.Name,
		"source", src.Location,
		"count", cat.Len(),
		"match", l.cfg.Match.String(),
	}
	if r, ok := cat.EpochRange(); ok {
		attrs = append(attrs,
			"epoch_min", r.Min.Format(time.RFC3339),
			"epoch_max", r.Max.Format(time.RFC3339),
		)
	}
	l.logger.Info("loaded catalog", attrs...)

	return cat, nil
}

// LoadAll loads every source in order. Any failure aborts: catalogs are
// configuration, not per-target data.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]*Catalog, error) {
	cats := make([]*Catalog, 0, len(sources))
	for _, src := range sources {
		cat, err := l.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func (l *Loader) loadFile(src Source) ([]byte, time.Time, error) {
	data, err := os.ReadFile(src.Location)
	if err != nil {
		return nil, time.Time{}, err
	}
	loadedAt := time.Now().UTC()
	if fi, err := os.Stat(src.Location); err == nil {
		loadedAt = fi.ModTime().UTC()
	}
	return data, loadedAt, nil
}

func (l *Loader) loadRemote(ctx context.Context, src Source) ([]byte, time.Time, error) {
	cache := NewCache(l.cfg.CacheDir, src.Name, l.cfg.MaxFiles)
	fetcher := NewFetcher(src.Location, l.cfg.FetchTimeout, l.logger)

	cached, cachedAt, cerr := cache.LoadLatest()
	var since time.Time
	if cerr == nil {
		since = cachedAt
	}

	data, err := fetcher.Fetch(ctx, since)
	switch {
	case err == nil:
		now := time.Now().UTC()
		if werr := cache.Write(data, now); werr != nil {
			l.logger.Warn("failed to cache catalog", "catalog", src.Name, "error", werr)
		}
		return data, now, nil
	case errors.Is(err, ErrNotModified) && cerr == nil:
		l.logger.Info("catalog unchanged, using cache", "catalog", src.Name, "cached_at", cachedAt.Format(time.RFC3339))
		return cached, cachedAt, nil
	case cerr != nil:
		return nil, time.Time{}, fmt.Errorf("%w (cache: %v)", err, cerr)
	}

	l.logger.Warn("catalog fetch failed, using cache",
		"catalog", src.Name,
		"url", src.Location,
		"cached_at", cachedAt.Format(time.RFC3339),
		"error", err,
	)
	return cached, cachedAt, nil
}
