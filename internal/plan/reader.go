package plan

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one data line of a plan with the filter in effect for it.
type Record struct {
	Filter  string
	Name    string // underscored form, see ObjectName
	RAHours float64
	DecDeg  float64
}

// Plan is a parsed plan file.
type Plan struct {
	Site       string
	LocalStart string
	Interval   int
	Records    []Record
}

// Read parses a plan. Directives other than #filter and #interval are
// skipped; a data line that is not name<TAB>ra<TAB>dec is an error.
func Read(r io.Reader) (*Plan, error) {
	p := &Plan{}
	var filter string

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \r")

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, ";"):
			comment := strings.TrimSpace(strings.TrimPrefix(line, ";"))
			if v, ok := strings.CutPrefix(comment, "observation site:"); ok {
				p.Site = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(comment, "local start time"); ok {
				p.LocalStart = strings.TrimSpace(v)
			}
		case strings.HasPrefix(line, "#"):
			directive, arg, _ := strings.Cut(line[1:], " ")
			switch strings.ToLower(directive) {
			case "filter":
				filter = strings.TrimSpace(arg)
			case "interval":
				n, err := strconv.Atoi(strings.TrimSpace(arg))
				if err != nil {
					return nil, fmt.Errorf("line %d: bad interval %q: %w", lineNum, arg, err)
				}
				p.Interval = n
			}
		default:
			rec, err := parseDataLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			rec.Filter = filter
			p.Records = append(p.Records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return p, nil
}

func parseDataLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("expected 3 tab-separated fields, got %d", len(fields))
	}
	ra, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad RA %q: %w", fields[1], err)
	}
	dec, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad Dec %q: %w", fields[2], err)
	}
	return Record{Name: fields[0], RAHours: ra, DecDeg: dec}, nil
}
