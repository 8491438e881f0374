// Package analog finds historical years whose climate indices resemble a
// target month.
package analog

import (
	"math"
	"sort"

	"analogfinder/internal/modules/climate/types"
)

// Search returns the records of c.Month that satisfy c, ordered by c.Order
// and truncated to c.Limit. Invalid criteria produce an empty result.
func Search(records []types.Record, c types.Criteria) []types.Match {
	if c.Validate() != nil {
		return []types.Match{}
	}

	matches := make([]types.Match, 0)
	for _, rec := range records {
		if rec.Month != c.Month {
			continue
		}
		if !pdoPhaseHolds(rec, c.PDOPhase, c.PDOThreshold) {
			continue
		}
		m, ok := score(rec, c.Targets)
		if !ok {
			continue
		}
		matches = append(matches, m)
	}

	sortMatches(matches, c.Order)

	if c.Limit > 0 && len(matches) > c.Limit {
		matches = matches[:c.Limit]
	}
	return matches
}

func pdoPhaseHolds(rec types.Record, phase types.PDOPhase, threshold float64) bool {
	if phase == types.PDOAny {
		return true
	}
	pdo, ok := rec.Value(types.PDO)
	if !ok {
		return false
	}
	switch phase {
	case types.PDOPositive:
		return pdo >= threshold
	case types.PDONegative:
		return pdo <= -threshold
	case types.PDONeutral:
		return pdo > -threshold && pdo < threshold
	}
	return false
}

// score computes per-target diffs and their Euclidean norm. It reports false
// when a target index is missing or a diff exceeds its tolerance.
func score(rec types.Record, targets []types.Target) (types.Match, bool) {
	diffs := make(map[types.Index]float64, len(targets))
	var sum float64
	for _, t := range targets {
		v, ok := rec.Value(t.Index)
		if !ok {
			return types.Match{}, false
		}
		d := v - t.Value
		if t.Tolerance != nil && math.Abs(d) > *t.Tolerance {
			return types.Match{}, false
		}
		diffs[t.Index] = d
		sum += d * d
	}
	return types.Match{Record: rec, Score: math.Sqrt(sum), Diffs: diffs}, true
}

func sortMatches(matches []types.Match, order types.Order) {
	if order == types.OrderYear {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Year < matches[j].Year
		})
		return
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return matches[i].Year < matches[j].Year
	})
}
