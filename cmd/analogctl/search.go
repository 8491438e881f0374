package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"analogfinder/internal/modules/climate/chart"
	"analogfinder/internal/modules/climate/export"
	"analogfinder/internal/modules/climate/types"
)

var searchFlags struct {
	month        int
	oni          float64
	iod          float64
	oniTol       float64
	iodTol       float64
	pdoPhase     string
	pdoThreshold float64
	topN         int
	sort         string
	targets      []string

	json bool
	xlsx string
	svg  string
	png  string
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find past months whose climate indices resemble the given state",
	Long: `Load the dataset and rank the years of --month by their distance to the
target index values. ONI and IOD are always targets; more indices are added
with --target INDEX:value[:tolerance], e.g. --target NAO:-0.5:1.

Results print as a table unless --json is set. --xlsx, --svg and --png also
write the workbook or chart to the given path.`,
	Example: `  analogctl search --month 12 --oni -1.0 --iod 0.3 --pdo-phase neg
  analogctl search --month 8 --oni 1.5 --oni-tol 0.5 --sort year --xlsx analogs.xlsx`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVar(&searchFlags.month, "month", 1, "target month (1-12)")
	f.Float64Var(&searchFlags.oni, "oni", -0.5, "target ONI value")
	f.Float64Var(&searchFlags.iod, "iod", -0.4, "target IOD value")
	f.Float64Var(&searchFlags.oniTol, "oni-tol", 0, "maximum |ONI - target| (unbounded when unset)")
	f.Float64Var(&searchFlags.iodTol, "iod-tol", 0, "maximum |IOD - target| (unbounded when unset)")
	f.StringVar(&searchFlags.pdoPhase, "pdo-phase", string(types.PDONegative), "PDO phase: pos, neg, neutral or any")
	f.Float64Var(&searchFlags.pdoThreshold, "pdo-threshold", 0.5, "PDO magnitude separating the phases")
	f.IntVar(&searchFlags.topN, "top-n", 10, "number of analogs to return (0 for all)")
	f.StringVar(&searchFlags.sort, "sort", string(types.OrderScore), "result order: score or year")
	f.StringSliceVar(&searchFlags.targets, "target", nil, "extra target as INDEX:value[:tolerance], repeatable")

	f.BoolVar(&searchFlags.json, "json", false, "print the result as JSON")
	f.StringVar(&searchFlags.xlsx, "xlsx", "", "write the result workbook to `path`")
	f.StringVar(&searchFlags.svg, "svg", "", "write the analog chart as SVG to `path`")
	f.StringVar(&searchFlags.png, "png", "", "write the analog chart as PNG to `path`")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	criteria, err := searchCriteria(cmd)
	if err != nil {
		return err
	}
	if err := criteria.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, _, closeDB, err := openDataset(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := svc.Search(ctx, criteria)
	if err != nil {
		return err
	}

	if searchFlags.xlsx != "" {
		if err := writeFile(searchFlags.xlsx, func(w io.Writer) error { return export.Workbook(w, result) }); err != nil {
			return err
		}
	}
	if searchFlags.svg != "" || searchFlags.png != "" {
		series, err := svc.Series(ctx, 0)
		if err != nil {
			return err
		}
		charts := []struct {
			path   string
			format chart.Format
		}{
			{searchFlags.svg, chart.SVG},
			{searchFlags.png, chart.PNG},
		}
		for _, c := range charts {
			if c.path == "" {
				continue
			}
			err := writeFile(c.path, func(w io.Writer) error {
				return chart.Analogs(w, c.format, series, result.Matches)
			})
			if err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	if searchFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printMatches(out, result)
}

func searchCriteria(cmd *cobra.Command) (types.Criteria, error) {
	flags := cmd.Flags()

	phase, err := types.ParsePDOPhase(searchFlags.pdoPhase)
	if err != nil {
		return types.Criteria{}, fmt.Errorf("--pdo-phase: %w", err)
	}

	oni := types.Target{Index: types.ONI, Value: searchFlags.oni}
	if flags.Changed("oni-tol") {
		tol := searchFlags.oniTol
		oni.Tolerance = &tol
	}
	iod := types.Target{Index: types.IOD, Value: searchFlags.iod}
	if flags.Changed("iod-tol") {
		tol := searchFlags.iodTol
		iod.Tolerance = &tol
	}

	c := types.Criteria{
		Month:        searchFlags.month,
		Targets:      []types.Target{oni, iod},
		PDOPhase:     phase,
		PDOThreshold: searchFlags.pdoThreshold,
		Limit:        searchFlags.topN,
		Order:        types.Order(searchFlags.sort),
	}
	for _, spec := range searchFlags.targets {
		t, err := parseTarget(spec)
		if err != nil {
			return types.Criteria{}, err
		}
		c.Targets = append(c.Targets, t)
	}
	return c, nil
}

// parseTarget parses "INDEX:value[:tolerance]".
func parseTarget(spec string) (types.Target, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.Target{}, fmt.Errorf("--target %q: expected INDEX:value[:tolerance]", spec)
	}
	idx, err := types.ParseIndex(parts[0])
	if err != nil {
		return types.Target{}, fmt.Errorf("--target %q: %w", spec, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return types.Target{}, fmt.Errorf("--target %q: invalid value", spec)
	}
	t := types.Target{Index: idx, Value: v}
	if len(parts) == 3 {
		tol, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || math.IsNaN(tol) || math.IsInf(tol, 0) {
			return types.Target{}, fmt.Errorf("--target %q: invalid tolerance", spec)
		}
		t.Tolerance = &tol
	}
	return t, nil
}

func printMatches(w io.Writer, result types.Result) error {
	if len(result.Matches) == 0 {
		_, err := fmt.Fprintln(w, "no analogs matched")
		return err
	}

	indices := []types.Index{types.ONI, types.IOD, types.PDO}
	for _, t := range result.Criteria.Targets {
		if t.Index != types.ONI && t.Index != types.IOD {
			indices = append(indices, t.Index)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"RANK", "YEAR", "SCORE"}
	for _, idx := range indices {
		header = append(header, string(idx))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for i, m := range result.Matches {
		row := []string{strconv.Itoa(i + 1), strconv.Itoa(m.Year), strconv.FormatFloat(m.Score, 'f', 3, 64)}
		for _, idx := range indices {
			if v, ok := m.Value(idx); ok {
				row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("wrote file", "path", path)
	return nil
}
