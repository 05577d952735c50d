// Package plan reads and writes ACP observing plans, the text format the
// observatory's control software executes line by line, plus the YAML run
// report that accompanies each plan.
package plan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/gosnold/satellite-observation-tools/internal/schedule"
)

// Fixed acquisition settings written after the header comments.
var directives = []string{
	"#trackoff",
	"#Sets 1",
	"#tiff",
	"#count 1",
	"#binning 1",
}

// Header is the preamble of a plan.
type Header struct {
	Site       string
	LocalStart string // as configured by the operator
	Exposure   int    // seconds, written as #interval
}

// Writer appends schedule entries to a plan. It implements schedule.Sink.
// The first write error is sticky: later calls return it without writing.
type Writer struct {
	bw      *bufio.Writer
	closer  io.Closer
	err     error
	entries int
}

// NewWriter writes the header to w and returns a Writer for the entries.
// Nothing reaches w until Flush or Close.
func NewWriter(w io.Writer, h Header) *Writer {
	pw := &Writer{bw: bufio.NewWriter(w)}
	pw.printf("; observation site: %s\n", h.Site)
	pw.printf("; local start time %s\n", h.LocalStart)
	for _, d := range directives {
		pw.printf("%s\n", d)
	}
	pw.printf("#interval %d\n", h.Exposure)
	return pw
}

// Create truncates or creates the plan file at path and writes the header.
// Close closes the file.
func Create(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating plan %s: %w", path, err)
	}
	w := NewWriter(f, h)
	w.closer = f
	return w, nil
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.bw, format, args...)
}

// Emit appends a filter directive and a data line for e.
func (w *Writer) Emit(e schedule.Entry) error {
	w.printf("#filter %s\n", e.Filter)
	w.printf("%s\t%s\t%s\n", ObjectName(e.Target), FormatNumber(e.RAHours), FormatNumber(e.DecDeg))
	if w.err == nil {
		w.entries++
	}
	return w.err
}

// Entries returns the number of entries written so far.
func (w *Writer) Entries() int {
	return w.entries
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

// Close flushes and, for a Writer from Create, closes the file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}

// ObjectName is the plan form of a target name. ACP splits data lines on
// whitespace, so every whitespace rune becomes an underscore, and a name that
// would read as a comment or directive gets a leading underscore.
func ObjectName(target string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, target)
	if strings.HasPrefix(name, ";") || strings.HasPrefix(name, "#") {
		name = "_" + name
	}
	return name
}

// FormatNumber renders v with the fewest digits that parse back to v.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
