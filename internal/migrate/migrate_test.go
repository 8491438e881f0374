package migrate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_AppliesAllThenNothing(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	n, err := Run(ctx, db, quietLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Run() applied %d, want 2", n)
	}

	n, err = Run(ctx, db, quietLogger())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Run() applied %d, want 0", n)
	}

	for _, table := range []string{"index_values", "dataset_sources"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	before, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(before) != 2 {
		t.Fatalf("Status() = %d migrations, want 2", len(before))
	}
	if before[0].Version != "0001" || before[1].Version != "0002" {
		t.Errorf("versions = %s, %s", before[0].Version, before[1].Version)
	}
	for _, m := range before {
		if m.Applied {
			t.Errorf("%s applied before Run", m.Version)
		}
	}

	if _, err := Run(ctx, db, quietLogger()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	after, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	for _, m := range after {
		if !m.Applied {
			t.Errorf("%s not applied after Run", m.Version)
		}
	}
}

func TestIndexValuesConstraints(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	if _, err := Run(ctx, db, quietLogger()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := db.Exec(`INSERT INTO index_values (year, month, idx, value) VALUES (1998, 13, 'ONI', 1.0)`); err == nil {
		t.Error("month 13 accepted, want CHECK failure")
	}
	if _, err := db.Exec(`INSERT INTO index_values (year, month, idx, value) VALUES (1998, 1, 'ONI', 1.0)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO index_values (year, month, idx, value) VALUES (1998, 1, 'ONI', 2.0)`); err == nil {
		t.Error("duplicate (year, month, idx) accepted")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{"0001_index_values.sql", "0001", "index_values", true},
		{"12_short.sql", "", "", false},
		{"0003_notes.txt", "", "", false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if v != tt.version || n != tt.name || ok != tt.ok {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v", tt.in, v, n, ok)
		}
	}
}
