package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"

	"analogfinder/internal/app"
	"analogfinder/internal/db"
	"analogfinder/internal/migrate"
	"analogfinder/internal/modules/climate/repository"
	"analogfinder/internal/modules/climate/service"
	"analogfinder/internal/modules/climate/types"
)

// openDataset opens the database, applies migrations and loads the index
// files into a fresh service. The returned close func releases the database.
func openDataset(ctx context.Context, opts ...service.Option) (*service.Service, types.DatasetSummary, func(), error) {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, types.DatasetSummary{}, nil, err
	}
	closeDB := func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "error", err)
		}
	}

	svc, summary, err := loadInto(ctx, conn, opts...)
	if err != nil {
		closeDB()
		return nil, types.DatasetSummary{}, nil, err
	}
	return svc, summary, closeDB, nil
}

func loadInto(ctx context.Context, conn *sql.DB, opts ...service.Option) (*service.Service, types.DatasetSummary, error) {
	if _, err := migrate.Run(ctx, conn, logger); err != nil {
		return nil, types.DatasetSummary{}, err
	}
	opts = append([]service.Option{service.WithLogger(logger)}, opts...)
	svc := service.NewService(repository.NewRepository(conn), opts...)

	summary, err := svc.Load(ctx, app.NewLoader(cfg, logger))
	if err != nil {
		return nil, types.DatasetSummary{}, err
	}
	return svc, summary, nil
}

func printCoverage(w io.Writer, summary types.DatasetSummary) error {
	fmt.Fprintf(w, "%d records, loaded at %s\n\n", summary.Records, summary.LoadedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tVALUES\tFIRST\tLAST\tSKIPPED\tSOURCE")
	for _, c := range summary.Indices {
		if c.Err != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s (%s)\n", c.Index, c.Source, c.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", c.Index, c.Count, c.First, c.Last, c.Skipped, c.Source)
	}
	return tw.Flush()
}
