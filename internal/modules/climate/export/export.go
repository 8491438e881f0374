// Package export writes analog search results as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"analogfinder/internal/modules/climate/types"
)

const (
	AnalogsSheet  = "Analogs"
	CriteriaSheet = "Criteria"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type styles struct {
	header int
	score  int
	value  int
	diff   int
}

// Workbook writes result to w. The Analogs sheet has one row per match in
// result order; Criteria records the search that produced it.
func Workbook(w io.Writer, result types.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", AnalogsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(CriteriaSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeAnalogs(f, result, st); err != nil {
		return err
	}
	if err := writeCriteria(f, result.Criteria, st); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	num := func(format string) (int, error) {
		return f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.score, err = num("0.000"); err != nil {
		return st, fmt.Errorf("score style: %w", err)
	}
	if st.value, err = num("0.00"); err != nil {
		return st, fmt.Errorf("value style: %w", err)
	}
	if st.diff, err = num("+0.00;-0.00;0.00"); err != nil {
		return st, fmt.Errorf("diff style: %w", err)
	}
	return st, nil
}

// analogColumns lists the value columns: the core indices plus any other
// target index.
func analogColumns(c types.Criteria) []types.Index {
	cols := append([]types.Index{}, types.CoreIndices...)
	for _, t := range c.Targets {
		found := false
		for _, idx := range cols {
			if idx == t.Index {
				found = true
				break
			}
		}
		if !found {
			cols = append(cols, t.Index)
		}
	}
	return cols
}

func writeAnalogs(f *excelize.File, result types.Result, st styles) error {
	cols := analogColumns(result.Criteria)

	headers := []string{"Rank", "Year", "Month", "Score"}
	for _, idx := range cols {
		headers = append(headers, string(idx))
	}
	for _, t := range result.Criteria.Targets {
		headers = append(headers, string(t.Index)+" Diff")
	}
	if err := writeHeader(f, AnalogsSheet, headers, st.header); err != nil {
		return err
	}

	for i, m := range result.Matches {
		row := i + 2
		col := 1
		set := func(v any, style int) error {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}
			col++
			if fv, ok := v.(float64); ok {
				if err := f.SetCellFloat(AnalogsSheet, cell, fv, -1, 64); err != nil {
					return err
				}
			} else if err := f.SetCellValue(AnalogsSheet, cell, v); err != nil {
				return err
			}
			if style != 0 {
				return f.SetCellStyle(AnalogsSheet, cell, cell, style)
			}
			return nil
		}

		if err := set(i+1, 0); err != nil {
			return err
		}
		if err := set(m.Year, 0); err != nil {
			return err
		}
		if err := set(m.Month, 0); err != nil {
			return err
		}
		if err := set(m.Score, st.score); err != nil {
			return err
		}
		for _, idx := range cols {
			v, ok := m.Value(idx)
			if !ok {
				col++
				continue
			}
			if err := set(v, st.value); err != nil {
				return err
			}
		}
		for _, t := range result.Criteria.Targets {
			if err := set(m.Diffs[t.Index], st.diff); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(AnalogsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(AnalogsSheet, "A", last, 11)
}

func writeCriteria(f *excelize.File, c types.Criteria, st styles) error {
	if err := writeHeader(f, CriteriaSheet, []string{"Parameter", "Value"}, st.header); err != nil {
		return err
	}

	rows := [][]any{
		{"Month", c.Month},
		{"PDO Phase", string(c.PDOPhase)},
		{"PDO Threshold", c.PDOThreshold},
		{"Order", string(c.Order)},
		{"Limit", c.Limit},
	}
	for _, t := range c.Targets {
		rows = append(rows, []any{string(t.Index) + " Target", t.Value})
		tol := "none"
		if t.Tolerance != nil {
			tol = fmt.Sprintf("%g", *t.Tolerance)
		}
		rows = append(rows, []any{string(t.Index) + " Tolerance", tol})
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CriteriaSheet, cell, &r); err != nil {
			return fmt.Errorf("criteria row %s: %w", strings.ToLower(fmt.Sprint(r[0])), err)
		}
	}
	if err := f.SetColWidth(CriteriaSheet, "A", "A", 18); err != nil {
		return err
	}
	return f.SetColWidth(CriteriaSheet, "B", "B", 12)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
