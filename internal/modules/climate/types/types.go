package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Index names a monthly climate index.
type Index string

const (
	ONI      Index = "ONI"
	IOD      Index = "IOD"
	PDO      Index = "PDO"
	NinoWest Index = "NinoWest"
	NAO      Index = "NAO"
	PNA      Index = "PNA"
	AO       Index = "AO"
	QBO30    Index = "QBO30"
	QBO50    Index = "QBO50"
)

// AllIndices lists every known index in display order.
var AllIndices = []Index{ONI, IOD, PDO, NinoWest, NAO, PNA, AO, QBO30, QBO50}

// CoreIndices are the indices shown in tables and charts.
var CoreIndices = []Index{ONI, IOD, PDO}

// ParseIndex matches s case-insensitively against the known indices.
func ParseIndex(s string) (Index, error) {
	s = strings.TrimSpace(s)
	for _, idx := range AllIndices {
		if strings.EqualFold(string(idx), s) {
			return idx, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIndex, s)
}

// Record holds the index values of one calendar month.
type Record struct {
	Year   int               `json:"year"`
	Month  int               `json:"month"`
	Values map[Index]float64 `json:"values"`
}

// Value returns the value of idx and whether the record carries it.
func (r Record) Value(idx Index) (float64, bool) {
	v, ok := r.Values[idx]
	return v, ok
}

// DecimalYear places the record on a continuous time axis (mid-month).
func (r Record) DecimalYear() float64 {
	return float64(r.Year) + (float64(r.Month)-0.5)/12
}

type PDOPhase string

const (
	PDOPositive PDOPhase = "pos"
	PDONegative PDOPhase = "neg"
	PDONeutral  PDOPhase = "neutral"
	PDOAny      PDOPhase = "any"
)

// ParsePDOPhase accepts the short keys used by the UI ("pos", "neg",
// "neutral" or "0", "any") as well as the long names.
func ParsePDOPhase(s string) (PDOPhase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pos", "positive":
		return PDOPositive, nil
	case "neg", "negative":
		return PDONegative, nil
	case "0", "neutral":
		return PDONeutral, nil
	case "any", "":
		return PDOAny, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPDOPhase, s)
	}
}

type Order string

const (
	OrderScore Order = "score"
	OrderYear  Order = "year"
)

// Target is the expected value of one index. A nil Tolerance means the
// index only contributes to the score.
type Target struct {
	Index     Index    `json:"index"`
	Value     float64  `json:"value"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

type Criteria struct {
	Month        int      `json:"month"`
	Targets      []Target `json:"targets"`
	PDOPhase     PDOPhase `json:"pdoPhase"`
	PDOThreshold float64  `json:"pdoThreshold"`
	Limit        int      `json:"limit"`
	Order        Order    `json:"order"`
}

var (
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidPDOPhase  = errors.New("invalid PDO phase")
	ErrInvalidThreshold = errors.New("PDO threshold must be >= 0")
	ErrInvalidTolerance = errors.New("tolerance must be >= 0")
	ErrInvalidLimit     = errors.New("limit must be >= 0")
	ErrInvalidOrder     = errors.New("order must be score or year")
	ErrUnknownIndex     = errors.New("unknown index")
	ErrDuplicateTarget  = errors.New("duplicate target index")
	ErrNoTargets        = errors.New("at least one target index is required")
	ErrNonFinite        = errors.New("value must be a finite number")
)

// Validate reports the first problem with c. Search tolerates invalid
// criteria (it returns nothing), transports use Validate to answer 400s.
func (c Criteria) Validate() error {
	if c.Month < 1 || c.Month > 12 {
		return ErrInvalidMonth
	}
	switch c.PDOPhase {
	case PDOPositive, PDONegative, PDONeutral, PDOAny:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPDOPhase, c.PDOPhase)
	}
	if !finite(c.PDOThreshold) {
		return fmt.Errorf("%w: PDO threshold", ErrNonFinite)
	}
	if c.PDOThreshold < 0 {
		return ErrInvalidThreshold
	}
	if c.Limit < 0 {
		return ErrInvalidLimit
	}
	switch c.Order {
	case OrderScore, OrderYear, "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrder, c.Order)
	}
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	seen := make(map[Index]bool, len(c.Targets))
	for _, t := range c.Targets {
		if _, err := ParseIndex(string(t.Index)); err != nil {
			return err
		}
		if t.Index == PDO {
			return fmt.Errorf("%w: PDO is matched by phase, not by value", ErrUnknownIndex)
		}
		if seen[t.Index] {
			return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.Index)
		}
		seen[t.Index] = true
		if !finite(t.Value) {
			return fmt.Errorf("%w: %s target", ErrNonFinite, t.Index)
		}
		if t.Tolerance != nil && !finite(*t.Tolerance) {
			return fmt.Errorf("%w: %s tolerance", ErrNonFinite, t.Index)
		}
		if t.Tolerance != nil && *t.Tolerance < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTolerance, t.Index)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TargetFor returns the target set for idx, if any.
func (c Criteria) TargetFor(idx Index) (Target, bool) {
	for _, t := range c.Targets {
		if t.Index == idx {
			return t, true
		}
	}
	return Target{}, false
}

// Match is a record that satisfied the criteria. Diffs hold value - target
// per target index; Score is their Euclidean norm.
type Match struct {
	Record
	Score float64           `json:"score"`
	Diffs map[Index]float64 `json:"diffs"`
}

type Result struct {
	Criteria Criteria `json:"criteria"`
	Matches  []Match  `json:"matches"`
}

// Years returns the matched years in result order.
func (r Result) Years() []int {
	out := make([]int, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Year)
	}
	return out
}

// YearMonth is a compact calendar month, used for coverage bounds.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (ym YearMonth) String() string {
	if ym.Year == 0 {
		return "-"
	}
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// SourceReport describes how one source file contributed to the dataset.
type SourceReport struct {
	Index   Index  `json:"index"`
	Source  string `json:"source"`
	Values  int    `json:"values"`
	Skipped int    `json:"skipped"`
	Err     string `json:"error,omitempty"`
}

type IndexCoverage struct {
	Index   Index     `json:"index"`
	Count   int       `json:"count"`
	First   YearMonth `json:"first"`
	Last    YearMonth `json:"last"`
	Source  string    `json:"source,omitempty"`
	Skipped int       `json:"skipped"`
	Err     string    `json:"error,omitempty"`
}

type DatasetSummary struct {
	LoadedAt time.Time       `json:"loadedAt"`
	Records  int             `json:"records"`
	Indices  []IndexCoverage `json:"indices"`
}
