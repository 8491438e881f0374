package sources

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analogfinder/internal/modules/climate/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func testCatalog() []Source {
	cat := DefaultCatalog()
	return cat[:3]
}

func TestLoader_MergesByYearMonth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "oni.data", "2020 0.5 0.6 0.7 0.8 0.9 1.0 1.1 1.2 1.3 1.4 1.5 1.6\n")
	writeFile(t, dir, "dmi.had.long.data", "2020 0.1 0.2 0.3 0.4 0.5 0.6 0.7 0.8 0.9 1.0 1.1 -9999\n")
	writeFile(t, dir, "ersst.v5.pdo.dat", " Year Jan\n2020 -1 -1 -1 -1 -1 -1 -1 -1 -1 -1 -1 -1\n2021 -2 -2 -2 -2 -2 -2 -2 -2 -2 -2 -2 -2\n")

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewLoader(DirOpener{Dir: dir},
		WithCatalog(testCatalog()),
		WithClock(clockwork.NewFakeClockAt(now)),
		WithLogger(discardLogger()),
	)

	ds, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now, ds.LoadedAt)
	require.Len(t, ds.Records, 24)
	assert.Equal(t, types.Record{Year: 2020, Month: 1, Values: map[types.Index]float64{
		types.ONI: 0.5, types.IOD: 0.1, types.PDO: -1,
	}}, ds.Records[0])

	dec := ds.Records[11]
	assert.Equal(t, 12, dec.Month)
	_, hasIOD := dec.Value(types.IOD)
	assert.False(t, hasIOD)

	jan21 := ds.Records[12]
	assert.Equal(t, 2021, jan21.Year)
	assert.Equal(t, map[types.Index]float64{types.PDO: -2}, jan21.Values)

	require.Len(t, ds.Reports, 3)
	assert.Equal(t, 12, ds.Reports[0].Values)
	assert.Equal(t, 11, ds.Reports[1].Values)
	assert.Equal(t, 24, ds.Reports[2].Values)
}

func TestLoader_MissingSourceIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "oni.data", "2020 0.5 0.6 0.7 0.8 0.9 1.0 1.1 1.2 1.3 1.4 1.5 1.6\n")

	l := NewLoader(DirOpener{Dir: dir}, WithCatalog(testCatalog()), WithLogger(discardLogger()))

	ds, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Records, 12)
	require.Len(t, ds.Reports, 3)
	assert.Empty(t, ds.Reports[0].Err)
	assert.NotEmpty(t, ds.Reports[1].Err)
	assert.NotEmpty(t, ds.Reports[2].Err)
}

func TestLoader_NoDataFails(t *testing.T) {
	l := NewLoader(DirOpener{Dir: t.TempDir()}, WithCatalog(testCatalog()), WithLogger(discardLogger()))

	ds, err := l.Load(context.Background())

	assert.ErrorIs(t, err, ErrNoData)
	assert.Len(t, ds.Reports, 3)
}

func TestLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(DirOpener{Dir: t.TempDir()}, WithLogger(discardLogger()))
	_, err := l.Load(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPOpener(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "analogfinder-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/oni.data":
			_, _ = io.WriteString(w, "2020 0.5 0.6 0.7 0.8 0.9 1.0 1.1 1.2 1.3 1.4 1.5 1.6\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cat := testCatalog()
	cat[0].URL = srv.URL + "/oni.data"
	cat[1].URL = srv.URL + "/missing"
	cat = cat[:2]

	l := NewLoader(NewHTTPOpenerWithClient(srv.Client(), "analogfinder-test"),
		WithCatalog(cat), WithLogger(discardLogger()))

	ds, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Records, 12)
	assert.Equal(t, srv.URL+"/oni.data", ds.Reports[0].Source)
	assert.Contains(t, ds.Reports[1].Err, "unexpected status 404")
}
