package tle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTargetNotFound is returned when no record in a catalog matches a target name.
var ErrTargetNotFound = errors.New("target not found")

// MatchMode selects how a target name is compared against catalog name lines.
type MatchMode int

const (
	// MatchSubstring accepts the first record whose name contains the target.
	// A target that is a substring of another object's name can resolve to
	// the wrong record when that record comes first.
	MatchSubstring MatchMode = iota
	// MatchExact accepts only a record whose trimmed name equals the target.
	MatchExact
)

// ParseMatchMode parses "substring" or "exact".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return MatchSubstring, nil
	case "exact":
		return MatchExact, nil
	}
	return MatchSubstring, fmt.Errorf("unknown match mode %q (want substring or exact)", s)
}

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "substring"
}

// Catalog is an ordered list of element sets loaded from one source.
// Immutable after construction.
type Catalog struct {
	name     string
	source   string
	loadedAt time.Time
	match    MatchMode
	entries  []Entry
}

// NewCatalog creates a Catalog. name is used in diagnostics ("NORAD", "classified").
func NewCatalog(name, source string, loadedAt time.Time, match MatchMode, entries []Entry) *Catalog {
	return &Catalog{
		name:     name,
		source:   source,
		loadedAt: loadedAt,
		match:    match,
		entries:  entries,
	}
}

// Name returns the catalog's display name.
func (c *Catalog) Name() string { return c.name }

// Source returns the path or URL the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// LoadedAt returns when the catalog data was read or fetched.
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Len returns the number of element sets.
func (c *Catalog) Len() int { return len(c.entries) }

// EpochRange returns the epoch span of the catalog, or false if it is empty.
func (c *Catalog) EpochRange() (EpochRange, bool) {
	return epochRange(c.entries)
}

// Lookup scans the catalog top to bottom and returns the first entry whose
// name matches target under the catalog's match mode.
func (c *Catalog) Lookup(target string) (Entry, error) {
	if strings.TrimSpace(target) == "" {
		return Entry{}, fmt.Errorf("%w: empty target name in list %s", ErrTargetNotFound, c.name)
	}
	for _, e := range c.entries {
		if c.matches(e.Name, target) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q in list %s", ErrTargetNotFound, target, c.name)
}

func (c *Catalog) matches(name, target string) bool {
	if c.match == MatchExact {
		return strings.TrimSpace(name) == strings.TrimSpace(target)
	}
	return strings.Contains(name, target)
}
