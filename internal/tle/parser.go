package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type numberedLine struct {
	n    int
	text string
}

// Parse reads a catalog in three-line format (a name line, then element lines
// 1 and 2) and returns its entries in file order. Blank lines are ignored and
// space-track "0 NAME" lines are accepted. Entries that cannot be decoded are
// logged and skipped; only read errors are returned.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	var (
		entries []Entry
		window  []numberedLine
		n       int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		n++
		text := strings.TrimRight(sc.Text(), "\r ")
		if text == "" {
			continue
		}
		window = append(window, numberedLine{n: n, text: text})
		if len(window) < 3 {
			continue
		}

		e, skip, err := parseEntry(window[0].text, window[1].text, window[2].text)
		if err != nil {
			logger.Warn("skipping malformed TLE entry",
				"line", window[0].n,
				"name", entryName(window[0].text),
				"error", err,
			)
		} else {
			entries = append(entries, e)
		}
		window = append(window[:0], window[skip:]...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}
	if len(window) > 0 {
		logger.Warn("ignoring incomplete TLE entry at end of data", "line", window[0].n)
	}

	return entries, nil
}

// parseEntry decodes one name line and its two element lines. On error, skip
// tells how many of the three lines to drop before trying again: one when
// the lines are out of step, all three when the entry itself is bad.
func parseEntry(name, line1, line2 string) (e Entry, skip int, err error) {
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return Entry{}, 1, errors.New("not followed by element lines 1 and 2")
	}
	// Columns 3-7 hold the catalog number, 19-32 the epoch.
	if len(line1) < 32 {
		return Entry{}, 3, fmt.Errorf("line 1 has only %d characters", len(line1))
	}
	id, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return Entry{}, 3, fmt.Errorf("catalog number: %w", err)
	}
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return Entry{}, 3, err
	}
	return Entry{
		NORADID: id,
		Name:    entryName(name),
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, 3, nil
}

// entryName strips the 3LE "0 " marker and surrounding blanks from a name line.
func entryName(line string) string {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "0 "); ok {
		return strings.TrimSpace(rest)
	}
	return line
}

// parseEpoch decodes a YYDDD.DDDDDDDD epoch. Two-digit years 57-99 are
// 1957-1999, 00-56 are 2000-2056.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year %q: %w", s[:2], err)
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day %q: %w", s[2:], err)
	}

	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return jan1.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}
