package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	m["msg"] = slog.StringValue(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) recordsFor(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func openLogged(t *testing.T, handler *captureHandler) *sql.DB {
	t.Helper()
	connector, err := NewLoggingConnector(":memory:", slog.New(handler))
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func lastSQL(t *testing.T, handler *captureHandler) map[string]slog.Value {
	t.Helper()
	recs := handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected at least one sql log record")
	}
	return recs[len(recs)-1]
}

func TestNewLoggingConnector_nilLoggerUsesDefault(t *testing.T) {
	conn, err := NewLoggingConnector(":memory:", nil)
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	lc, ok := conn.(*loggingConnector)
	if !ok {
		t.Fatalf("connector type = %T", conn)
	}
	if lc.logger == nil {
		t.Fatal("logger is nil, want slog.Default()")
	}
}

func TestLoggingConnector_ExecLogsStatementAndDuration(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`CREATE TABLE index_values (year INTEGER, month INTEGER, idx TEXT, value REAL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	got := lastSQL(t, handler)
	if got["op"].String() != "exec" {
		t.Errorf("op: got %q, want exec", got["op"].String())
	}
	if _, ok := got["duration_ms"]; !ok {
		t.Error("expected duration_ms attribute")
	}
	if _, ok := got["error"]; ok {
		t.Error("unexpected error attribute on successful exec")
	}
}

func TestLoggingConnector_ArgsAreFormatted(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`CREATE TABLE index_values (year INTEGER, month INTEGER, idx TEXT, value REAL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	handler.reset()

	_, err := db.Exec(`INSERT INTO index_values (year, month, idx, value) VALUES (?, ?, ?, ?)`, 1998, 1, "ONI", -1.5)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got := lastSQL(t, handler)
	if got["sql"].String() != `INSERT INTO index_values (year, month, idx, value) VALUES (?, ?, ?, ?)` {
		t.Errorf("sql: got %q", got["sql"].String())
	}
	args, ok := got["args"].Any().([]string)
	if !ok {
		t.Fatalf("args type = %T, want []string", got["args"].Any())
	}
	want := []string{"1998", "1", "ONI", "-1.5"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestLoggingConnector_QueryLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("query row: %v", err)
	}
	got := lastSQL(t, handler)
	if got["op"].String() != "query" {
		t.Errorf("op: got %q, want query", got["op"].String())
	}
	if got["sql"].String() != `SELECT 1` {
		t.Errorf("sql: got %q", got["sql"].String())
	}
}

func TestLoggingConnector_FailedPrepareLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`SELECT * FROM missing_table`); err == nil {
		t.Fatal("expected error for missing table")
	}
	recs := handler.recordsFor(t, "sql prepare failed")
	if len(recs) == 0 {
		t.Fatal("expected prepare failure to be logged")
	}
	if _, ok := recs[0]["error"]; !ok {
		t.Error("expected error attribute")
	}
}

func TestLoggingConnector_PingSucceeds(t *testing.T) {
	db := openLogged(t, &captureHandler{})
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
