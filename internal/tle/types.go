package tle

import "time"

// Entry represents a single object's two-line element set.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange represents the minimum and maximum epoch times in a catalog.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// epochRange returns the epoch span of entries, or false if entries is empty.
func epochRange(entries []Entry) (EpochRange, bool) {
	if len(entries) == 0 {
		return EpochRange{}, false
	}
	r := EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(r.Min) {
			r.Min = e.Epoch
		}
		if e.Epoch.After(r.Max) {
			r.Max = e.Epoch
		}
	}
	return r, true
}
