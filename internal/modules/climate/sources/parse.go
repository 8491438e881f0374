package sources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrNoPreBlock = errors.New("no <pre> block found")

// Years outside this range cannot be stored (see the index_values schema).
const (
	MinYear = 1800
	MaxYear = 2200
)

// Observation is one monthly value read from a table.
type Observation struct {
	Year  int
	Month int
	Value float64
}

// Issue points at a malformed part of a table.
type Issue struct {
	Line   int
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Reason)
}

// Table is the parsed content of one source.
type Table struct {
	Observations []Observation
	// Missing counts sentinel values (e.g. -99.9) that were dropped.
	Missing int
	// Skipped counts fields or rows that could not be parsed.
	Skipped int
	Issues  []Issue
}

// ParseTable reads a year-by-month table. Lines that do not start with a
// year are ignored; rows before fromYear are dropped.
func ParseTable(r io.Reader, f Format, fromYear int) (Table, error) {
	if f.PreBlock {
		b, err := io.ReadAll(r)
		if err != nil {
			return Table{}, fmt.Errorf("read table: %w", err)
		}
		block, ok := preBlock(string(b))
		if !ok {
			return Table{}, ErrNoPreBlock
		}
		r = strings.NewReader(block)
	}

	minFields := f.MinFields
	if minFields < 2 {
		minFields = 2
	}

	var t Table
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if f.SkipContaining != "" && strings.Contains(line, f.SkipContaining) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || !isDigits(fields[0]) {
			continue
		}
		year, err := strconv.Atoi(fields[0])
		if err != nil {
			t.skip(lineNo, fmt.Sprintf("year %q: %v", fields[0], err))
			continue
		}
		if len(fields) < minFields {
			// "1950 2024" style year-range headers carry exactly two fields.
			if len(fields) > 2 {
				t.skip(lineNo, fmt.Sprintf("row for %d has %d fields, want %d", year, len(fields), minFields))
			}
			continue
		}
		if year < MinYear || year > MaxYear {
			t.skip(lineNo, fmt.Sprintf("year %d outside %d-%d", year, MinYear, MaxYear))
			continue
		}
		if year < fromYear {
			continue
		}
		for m := 1; m <= 12 && m < len(fields); m++ {
			v, err := strconv.ParseFloat(fields[m], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				t.skip(lineNo, fmt.Sprintf("%d-%02d value %q", year, m, fields[m]))
				continue
			}
			if f.Valid != nil && !f.Valid(v) {
				t.Missing++
				continue
			}
			t.Observations = append(t.Observations, Observation{Year: year, Month: m, Value: v})
		}
	}
	if err := sc.Err(); err != nil {
		return t, fmt.Errorf("scan table: %w", err)
	}
	return t, nil
}

func (t *Table) skip(line int, reason string) {
	t.Skipped++
	t.Issues = append(t.Issues, Issue{Line: line, Reason: reason})
}

func preBlock(html string) (string, bool) {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<pre>")
	if start < 0 {
		return "", false
	}
	start += len("<pre>")
	end := strings.Index(lower[start:], "</pre>")
	if end < 0 {
		return html[start:], true
	}
	return html[start : start+end], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
