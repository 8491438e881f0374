package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"analogfinder/internal/modules/climate/types"
)

//go:embed sql/delete-values.sql
var deleteValuesSQL string

//go:embed sql/delete-sources.sql
var deleteSourcesSQL string

//go:embed sql/insert-value.sql
var insertValueSQL string

//go:embed sql/insert-source.sql
var insertSourceSQL string

//go:embed sql/get-month.sql
var getMonthSQL string

//go:embed sql/get-records.sql
var getRecordsSQL string

//go:embed sql/get-coverage.sql
var getCoverageSQL string

//go:embed sql/get-summary.sql
var getSummarySQL string

// ClimateRepository stores the loaded index table. ReplaceAll swaps the whole
// dataset atomically; readers never see a partial load.
type ClimateRepository interface {
	ReplaceAll(ctx context.Context, records []types.Record, reports []types.SourceReport, loadedAt time.Time) error
	GetMonth(ctx context.Context, month int) ([]types.Record, error)
	GetRecords(ctx context.Context, fromYear int) ([]types.Record, error)
	GetCoverage(ctx context.Context) ([]types.IndexCoverage, error)
	GetSummary(ctx context.Context) (types.DatasetSummary, error)
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) ReplaceAll(ctx context.Context, records []types.Record, reports []types.SourceReport, loadedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteValuesSQL); err != nil {
		return fmt.Errorf("clear index values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteSourcesSQL); err != nil {
		return fmt.Errorf("clear dataset sources: %w", err)
	}

	valueStmt, err := tx.PrepareContext(ctx, insertValueSQL)
	if err != nil {
		return fmt.Errorf("prepare insert value: %w", err)
	}
	defer func() {
		if err := valueStmt.Close(); err != nil {
			slog.Error("close insert value stmt", "error", err)
		}
	}()
	for _, rec := range records {
		for idx, v := range rec.Values {
			if _, err := valueStmt.ExecContext(ctx, rec.Year, rec.Month, string(idx), v); err != nil {
				return fmt.Errorf("insert %s %04d-%02d: %w", idx, rec.Year, rec.Month, err)
			}
		}
	}

	ts := loadedAt.UTC().Format(time.RFC3339Nano)
	for _, rep := range reports {
		var errVal any
		if rep.Err != "" {
			errVal = rep.Err
		}
		if _, err := tx.ExecContext(ctx, insertSourceSQL, string(rep.Index), rep.Source, rep.Values, rep.Skipped, errVal, ts); err != nil {
			return fmt.Errorf("insert source %s: %w", rep.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetMonth(ctx context.Context, month int) ([]types.Record, error) {
	rows, err := r.db.QueryContext(ctx, getMonthSQL, month)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close month rows", "error", err)
		}
	}()
	return scanRecords(rows)
}

func (r *repositoryImpl) GetRecords(ctx context.Context, fromYear int) ([]types.Record, error) {
	rows, err := r.db.QueryContext(ctx, getRecordsSQL, fromYear)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close records rows", "error", err)
		}
	}()
	return scanRecords(rows)
}

// scanRecords folds (year, month, idx, value) rows into one Record per month.
// Rows must arrive grouped by (year, month).
func scanRecords(rows *sql.Rows) ([]types.Record, error) {
	out := []types.Record{}
	for rows.Next() {
		var (
			year, month int
			idx         string
			value       float64
		)
		if err := rows.Scan(&year, &month, &idx, &value); err != nil {
			return nil, err
		}
		n := len(out)
		if n == 0 || out[n-1].Year != year || out[n-1].Month != month {
			out = append(out, types.Record{Year: year, Month: month, Values: map[types.Index]float64{}})
			n++
		}
		out[n-1].Values[types.Index(idx)] = value
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetCoverage(ctx context.Context) ([]types.IndexCoverage, error) {
	rows, err := r.db.QueryContext(ctx, getCoverageSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close coverage rows", "error", err)
		}
	}()

	byIndex := make(map[types.Index]types.IndexCoverage)
	for rows.Next() {
		var (
			c           types.IndexCoverage
			idx, errStr string
			first, last int
		)
		if err := rows.Scan(&idx, &c.Source, &c.Skipped, &errStr, &c.Count, &first, &last); err != nil {
			return nil, err
		}
		c.Index = types.Index(idx)
		c.Err = errStr
		c.First = fromPacked(first)
		c.Last = fromPacked(last)
		byIndex[c.Index] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]types.IndexCoverage, 0, len(byIndex))
	for _, idx := range types.AllIndices {
		if c, ok := byIndex[idx]; ok {
			out = append(out, c)
			delete(byIndex, idx)
		}
	}
	rest := make([]types.IndexCoverage, 0, len(byIndex))
	for _, c := range byIndex {
		rest = append(rest, c)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Index < rest[j].Index })
	return append(out, rest...), nil
}

func (r *repositoryImpl) GetSummary(ctx context.Context) (types.DatasetSummary, error) {
	var (
		s        types.DatasetSummary
		loadedAt string
	)
	if err := r.db.QueryRowContext(ctx, getSummarySQL).Scan(&s.Records, &loadedAt); err != nil {
		return types.DatasetSummary{}, err
	}
	if loadedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, loadedAt)
		if err != nil {
			return types.DatasetSummary{}, fmt.Errorf("parse loaded_at %q: %w", loadedAt, err)
		}
		s.LoadedAt = t
	}
	cov, err := r.GetCoverage(ctx)
	if err != nil {
		return types.DatasetSummary{}, err
	}
	s.Indices = cov
	return s, nil
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func fromPacked(v int) types.YearMonth {
	if v == 0 {
		return types.YearMonth{}
	}
	return types.YearMonth{Year: v / 100, Month: v % 100}
}
