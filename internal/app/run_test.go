package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"analogfinder/internal/config"
	"analogfinder/internal/modules/climate/sources"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLoader_fileMode(t *testing.T) {
	dir := t.TempDir()
	row := "2020 0.5 0.6 0.7 0.8 0.9 1.0 1.1 1.2 1.3 1.4 1.5 1.6\n"
	if err := os.WriteFile(filepath.Join(dir, "oni.data"), []byte(row), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataMode: config.DataModeFile, DataDir: dir, DataFromYear: 2000}

	ds, err := NewLoader(cfg, quietLogger()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() = %v; want nil", err)
	}
	if len(ds.Records) != 12 {
		t.Errorf("len(Records) = %d; want 12", len(ds.Records))
	}
}

func TestNewLoader_fromYear(t *testing.T) {
	dir := t.TempDir()
	row := "1999 0.5 0.6 0.7 0.8 0.9 1.0 1.1 1.2 1.3 1.4 1.5 1.6\n"
	if err := os.WriteFile(filepath.Join(dir, "oni.data"), []byte(row), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataMode: config.DataModeFile, DataDir: dir, DataFromYear: 2000}

	_, err := NewLoader(cfg, quietLogger()).Load(context.Background())
	if !errors.Is(err, sources.ErrNoData) {
		t.Errorf("Load() = %v; want %v", err, sources.ErrNoData)
	}
}

// Run registers Prometheus collectors globally, so it is exercised once.
func TestRun_failsWithoutData(t *testing.T) {
	cfg := config.Config{
		AppEnv:             "dev",
		HTTPAddr:           "127.0.0.1:0",
		StaticDir:          t.TempDir(),
		DataMode:           config.DataModeFile,
		DataDir:            t.TempDir(),
		DataFromYear:       1950,
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "analog.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
	}

	err := Run(context.Background(), cfg, quietLogger())
	if !errors.Is(err, sources.ErrNoData) {
		t.Fatalf("Run() = %v; want %v", err, sources.ErrNoData)
	}
}
