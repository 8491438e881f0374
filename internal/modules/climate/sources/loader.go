package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"analogfinder/internal/modules/climate/types"
)

var ErrNoData = errors.New("no climate index values could be loaded")

// DefaultFromYear matches the first year of the ONI record.
const DefaultFromYear = 1950

// Dataset is the merged result of a load.
type Dataset struct {
	Records  []types.Record
	Reports  []types.SourceReport
	LoadedAt time.Time
}

type Loader struct {
	catalog  []Source
	opener   Opener
	fromYear int
	clock    clockwork.Clock
	logger   *slog.Logger
}

type LoaderOption func(*Loader)

func WithCatalog(catalog []Source) LoaderOption {
	return func(l *Loader) { l.catalog = catalog }
}

func WithFromYear(year int) LoaderOption {
	return func(l *Loader) { l.fromYear = year }
}

func WithClock(c clockwork.Clock) LoaderOption {
	return func(l *Loader) { l.clock = c }
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(opener Opener, opts ...LoaderOption) *Loader {
	l := &Loader{
		catalog:  DefaultCatalog(),
		opener:   opener,
		fromYear: DefaultFromYear,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type yearMonth struct{ year, month int }

// Load reads every catalog source and merges the values by (year, month).
// A source that cannot be read is reported and skipped; Load fails only if
// nothing was loaded at all.
func (l *Loader) Load(ctx context.Context) (Dataset, error) {
	merged := make(map[yearMonth]map[types.Index]float64)
	reports := make([]types.SourceReport, 0, len(l.catalog))

	for _, src := range l.catalog {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		report := l.loadSource(ctx, src, merged)
		reports = append(reports, report)
	}

	if len(merged) == 0 {
		return Dataset{Reports: reports}, ErrNoData
	}

	records := make([]types.Record, 0, len(merged))
	for ym, values := range merged {
		records = append(records, types.Record{Year: ym.year, Month: ym.month, Values: values})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year < records[j].Year
		}
		return records[i].Month < records[j].Month
	})

	return Dataset{
		Records:  records,
		Reports:  reports,
		LoadedAt: l.clock.Now().UTC(),
	}, nil
}

func (l *Loader) loadSource(ctx context.Context, src Source, merged map[yearMonth]map[types.Index]float64) types.SourceReport {
	report := types.SourceReport{Index: src.Index}
	start := l.clock.Now()

	rc, location, err := l.opener.Open(ctx, src)
	report.Source = location
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("climate source not available", "index", src.Index, "source", location)
		} else {
			l.logger.Warn("climate source open failed", "index", src.Index, "source", location, "error", err)
		}
		report.Err = err.Error()
		return report
	}
	defer func() {
		if err := rc.Close(); err != nil {
			l.logger.Error("close climate source", "index", src.Index, "error", err)
		}
	}()

	table, err := ParseTable(rc, src.Format, l.fromYear)
	if err != nil {
		l.logger.Warn("climate source parse failed", "index", src.Index, "source", location, "error", err)
		report.Err = fmt.Sprintf("parse: %v", err)
	}
	for _, issue := range table.Issues {
		l.logger.Warn("skipped malformed climate data", "index", src.Index, "source", location, "issue", issue.String())
	}

	for _, obs := range table.Observations {
		key := yearMonth{obs.Year, obs.Month}
		values, ok := merged[key]
		if !ok {
			values = make(map[types.Index]float64)
			merged[key] = values
		}
		values[src.Index] = obs.Value
	}

	report.Values = len(table.Observations)
	report.Skipped = table.Skipped
	l.logger.Info("climate source loaded",
		"index", src.Index,
		"source", location,
		"values", report.Values,
		"missing", table.Missing,
		"skipped", report.Skipped,
		"duration", l.clock.Since(start),
	)
	return report
}
