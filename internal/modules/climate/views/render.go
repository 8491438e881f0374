package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"analogfinder/internal/modules/climate/types"
)

var finderTmpl *template.Template

var errNotLoaded = errors.New("finder templates not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS loads the finder templates from fsys/dir. Tests use it
// to simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	finderTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	return err
}

// LoadTemplates loads the embedded templates. Call during startup; if it
// fails, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Option is one entry of a select box.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Form echoes the submitted criteria back into the sidebar.
type Form struct {
	Month        int
	ONI          string
	IOD          string
	ONITol       string
	IODTol       string
	PDOThreshold string
	TopN         int
}

type FinderData struct {
	Lang       Lang
	OtherLang  Lang
	T          Text
	Form       Form
	Months     []Option
	PDOOptions []Option
	Orders     []Option
	TopNMax    int

	// Results is nil until a search was submitted.
	Results         *ResultsData
	PreviewChartURL string
	Dataset         *DatasetData

	IODForecastURL  string
	ENSOForecastURL string
}

type ResultRow struct {
	Rank    int
	Year    int
	Score   string
	ONI     string
	IOD     string
	PDO     string
	ONIDiff string
	IODDiff string
}

type ResultsData struct {
	T         Text
	Error     string
	Rows      []ResultRow
	ChartURL  string
	ExportURL string
	NOAAURL   string
}

type CoverageRow struct {
	Index   string
	Count   int
	First   string
	Last    string
	Skipped int
	Err     string
}

type DatasetData struct {
	T        Text
	LoadedAt string
	Records  int
	Indices  []CoverageRow
}

// NewFinderData fills the static parts of the page for lang.
func NewFinderData(lang Lang, form Form, pdoPhase types.PDOPhase, order types.Order) *FinderData {
	t := TextFor(lang)

	months := make([]Option, 0, 12)
	for m := 1; m <= 12; m++ {
		months = append(months, Option{Value: fmt.Sprint(m), Label: fmt.Sprint(m), Selected: m == form.Month})
	}
	pdo := []Option{
		{Value: string(types.PDONegative), Label: t.PDONegative},
		{Value: string(types.PDOPositive), Label: t.PDOPositive},
		{Value: string(types.PDONeutral), Label: t.PDONeutral},
		{Value: string(types.PDOAny), Label: t.PDOAny},
	}
	for i := range pdo {
		pdo[i].Selected = pdo[i].Value == string(pdoPhase)
	}
	orders := []Option{
		{Value: string(types.OrderScore), Label: t.OrderScore, Selected: order != types.OrderYear},
		{Value: string(types.OrderYear), Label: t.OrderYear, Selected: order == types.OrderYear},
	}

	return &FinderData{
		Lang:            lang,
		OtherLang:       lang.Other(),
		T:               t,
		Form:            form,
		Months:          months,
		PDOOptions:      pdo,
		Orders:          orders,
		TopNMax:         20,
		IODForecastURL:  IODForecastURL,
		ENSOForecastURL: ENSOForecastURL,
	}
}

// NewResultsData formats result for display. query is the encoded criteria
// reused by the chart and export links.
func NewResultsData(lang Lang, result types.Result, query string) *ResultsData {
	rows := make([]ResultRow, 0, len(result.Matches))
	for i, m := range result.Matches {
		rows = append(rows, ResultRow{
			Rank:    i + 1,
			Year:    m.Year,
			Score:   fmt.Sprintf("%.3f", m.Score),
			ONI:     formatValue(m.Record, types.ONI),
			IOD:     formatValue(m.Record, types.IOD),
			PDO:     formatValue(m.Record, types.PDO),
			ONIDiff: formatDiff(m.Diffs, types.ONI),
			IODDiff: formatDiff(m.Diffs, types.IOD),
		})
	}
	return &ResultsData{
		T:         TextFor(lang),
		Rows:      rows,
		ChartURL:  "/charts/analogs.svg?" + query,
		ExportURL: "/api/v1/analogs.xlsx?" + query,
		NOAAURL:   NOAACompositeURL,
	}
}

// NewErrorResults renders msg in place of the results table.
func NewErrorResults(lang Lang, msg string) *ResultsData {
	t := TextFor(lang)
	return &ResultsData{T: t, Error: t.InvalidCriteria + ": " + msg}
}

func NewDatasetData(lang Lang, s types.DatasetSummary) *DatasetData {
	d := &DatasetData{T: TextFor(lang), Records: s.Records, LoadedAt: "-"}
	if !s.LoadedAt.IsZero() {
		d.LoadedAt = s.LoadedAt.UTC().Format(time.DateTime + " MST")
	}
	for _, c := range s.Indices {
		d.Indices = append(d.Indices, CoverageRow{
			Index:   string(c.Index),
			Count:   c.Count,
			First:   c.First.String(),
			Last:    c.Last.String(),
			Skipped: c.Skipped,
			Err:     c.Err,
		})
	}
	return d
}

func formatValue(r types.Record, idx types.Index) string {
	v, ok := r.Value(idx)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatDiff(diffs map[types.Index]float64, idx types.Index) string {
	d, ok := diffs[idx]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%+.2f", d)
}

func RenderFinder(w io.Writer, data *FinderData) error {
	if finderTmpl == nil {
		return errNotLoaded
	}
	return finderTmpl.ExecuteTemplate(w, "finder.html", data)
}

// RenderResultsPartial executes only the results partial, for HTMX swaps.
func RenderResultsPartial(w io.Writer, data *ResultsData) error {
	if finderTmpl == nil {
		return errNotLoaded
	}
	return finderTmpl.ExecuteTemplate(w, "partials/results.html", data)
}

func RenderDatasetPartial(w io.Writer, data *DatasetData) error {
	if finderTmpl == nil {
		return errNotLoaded
	}
	return finderTmpl.ExecuteTemplate(w, "partials/dataset.html", data)
}
