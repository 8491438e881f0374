package controller

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"analogfinder/internal/modules/climate/types"
	"analogfinder/internal/modules/climate/views"
)

func Test_parseCriteria(t *testing.T) {
	t.Run("no params returns defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c, form, err := parseCriteria(req)
		if err != nil {
			t.Fatalf("parseCriteria() err = %v; want nil", err)
		}
		if c.Month != 1 || c.PDOPhase != types.PDONegative || c.PDOThreshold != 0.5 || c.Limit != 10 || c.Order != types.OrderScore {
			t.Errorf("criteria = %+v; want defaults", c)
		}
		want := []types.Target{{Index: types.ONI, Value: -0.5}, {Index: types.IOD, Value: -0.4}}
		if !reflect.DeepEqual(c.Targets, want) {
			t.Errorf("Targets = %+v; want %+v", c.Targets, want)
		}
		if form.ONI != "-0.5" || form.IOD != "-0.4" || form.PDOThreshold != "0.5" || form.TopN != 10 {
			t.Errorf("form = %+v; want defaults", form)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("default criteria invalid: %v", err)
		}
	})

	t.Run("all params", func(t *testing.T) {
		q := "/?month=8&oni=1.2&oni_tol=0.3&iod=0&iod_tol=0&pdo_phase=pos&pdo_threshold=1&top_n=20&sort=year&target=nao:-0.5:1&target=QBO30:4"
		req := httptest.NewRequest(http.MethodGet, q, nil)
		c, form, err := parseCriteria(req)
		if err != nil {
			t.Fatalf("parseCriteria() err = %v; want nil", err)
		}
		if c.Month != 8 || c.PDOPhase != types.PDOPositive || c.PDOThreshold != 1 || c.Limit != 20 || c.Order != types.OrderYear {
			t.Errorf("criteria = %+v", c)
		}
		if len(c.Targets) != 4 {
			t.Fatalf("len(Targets) = %d; want 4", len(c.Targets))
		}
		oni := c.Targets[0]
		if oni.Value != 1.2 || oni.Tolerance == nil || *oni.Tolerance != 0.3 {
			t.Errorf("ONI target = %+v", oni)
		}
		iod := c.Targets[1]
		if iod.Tolerance == nil || *iod.Tolerance != 0 {
			t.Errorf("IOD tolerance = %v; want explicit 0", iod.Tolerance)
		}
		nao := c.Targets[2]
		if nao.Index != types.NAO || nao.Value != -0.5 || nao.Tolerance == nil || *nao.Tolerance != 1 {
			t.Errorf("NAO target = %+v", nao)
		}
		if qbo := c.Targets[3]; qbo.Index != types.QBO30 || qbo.Tolerance != nil {
			t.Errorf("QBO30 target = %+v", qbo)
		}
		if form.Month != 8 || form.ONITol != "0.3" || form.TopN != 20 {
			t.Errorf("form = %+v", form)
		}
	})

	t.Run("form echoes input on error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?month=3&oni=abc", nil)
		_, form, err := parseCriteria(req)
		if err == nil {
			t.Fatal("parseCriteria() err = nil; want error")
		}
		if form.ONI != "abc" || form.Month != 3 {
			t.Errorf("form = %+v; want submitted values", form)
		}
	})

	invalid := []struct {
		name  string
		query string
		want  string
	}{
		{name: "month text", query: "month=jan", want: "'month'"},
		{name: "month zero", query: "month=0", want: "'month'"},
		{name: "month 13", query: "month=13", want: "'month'"},
		{name: "oni", query: "oni=x", want: "'oni'"},
		{name: "iod", query: "iod=x", want: "'iod'"},
		{name: "negative oni_tol", query: "oni_tol=-1", want: "'oni_tol'"},
		{name: "iod_tol text", query: "iod_tol=wide", want: "'iod_tol'"},
		{name: "pdo phase", query: "pdo_phase=up", want: "'pdo_phase'"},
		{name: "negative threshold", query: "pdo_threshold=-0.1", want: "'pdo_threshold'"},
		{name: "top_n zero", query: "top_n=0", want: "'top_n'"},
		{name: "top_n too large", query: "top_n=21", want: "'top_n'"},
		{name: "sort", query: "sort=random", want: "'sort'"},
		{name: "target format", query: "target=NAO", want: "'target'"},
		{name: "target index", query: "target=XYZ:1", want: "unknown index"},
		{name: "target PDO", query: "target=PDO:1", want: "unknown index"},
		{name: "target value", query: "target=NAO:x", want: "'target'"},
		{name: "target duplicates oni", query: "target=ONI:1", want: "already set"},
		{name: "NaN oni", query: "oni=NaN", want: "'oni'"},
		{name: "infinite iod", query: "iod=-Inf", want: "'iod'"},
		{name: "NaN oni_tol", query: "oni_tol=nan", want: "'oni_tol'"},
		{name: "infinite iod_tol", query: "iod_tol=inf", want: "'iod_tol'"},
		{name: "NaN threshold", query: "pdo_threshold=NaN", want: "'pdo_threshold'"},
		{name: "infinite threshold", query: "pdo_threshold=%2BInf", want: "'pdo_threshold'"},
		{name: "NaN target value", query: "target=NAO:NaN", want: "'target'"},
		{name: "infinite target tolerance", query: "target=NAO:1:Infinity", want: "'target'"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			_, _, err := parseCriteria(req)
			if err == nil {
				t.Fatalf("parseCriteria(%q) err = nil; want error", tt.query)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("parseCriteria(%q) err = %q; want containing %q", tt.query, err.Error(), tt.want)
			}
		})
	}
}

func Test_encodeCriteria(t *testing.T) {
	tol := 0.25
	c := types.Criteria{
		Month: 11,
		Targets: []types.Target{
			{Index: types.ONI, Value: -1.5, Tolerance: &tol},
			{Index: types.IOD, Value: 0.4},
			{Index: types.AO, Value: 1, Tolerance: &tol},
		},
		PDOPhase:     types.PDONeutral,
		PDOThreshold: 0.7,
		Limit:        5,
		Order:        types.OrderYear,
	}

	encoded := encodeCriteria(c)
	values, err := url.ParseQuery(encoded)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", encoded, err)
	}
	if values.Get("oni_tol") != "0.25" || values.Get("iod_tol") != "" || values.Get("target") != "AO:1:0.25" {
		t.Errorf("encoded = %q", encoded)
	}

	req := httptest.NewRequest(http.MethodGet, "/?"+encoded, nil)
	got, _, err := parseCriteria(req)
	if err != nil {
		t.Fatalf("parseCriteria(encodeCriteria()) err = %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("round trip = %+v; want %+v", got, c)
	}
}

func Test_parseFromYear(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{query: "", want: 0},
		{query: "from_year=1979", want: 1979},
		{query: "from_year=abc", wantErr: true},
		{query: "from_year=1700", wantErr: true},
		{query: "from_year=3000", wantErr: true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/indices?"+tt.query, nil)
		got, err := parseFromYear(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFromYear(%q) err = %v; wantErr %v", tt.query, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFromYear(%q) = %d; want %d", tt.query, got, tt.want)
		}
	}
}

func Test_resolveLang(t *testing.T) {
	t.Run("defaults to Japanese", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		if got := resolveLang(rec, req); got != views.LangJA {
			t.Errorf("resolveLang() = %q; want %q", got, views.LangJA)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("cookie set without ?lang")
		}
	})

	t.Run("query wins and is remembered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=EN", nil)
		req.AddCookie(&http.Cookie{Name: langCookieName, Value: "ja"})
		rec := httptest.NewRecorder()
		if got := resolveLang(rec, req); got != views.LangEN {
			t.Errorf("resolveLang() = %q; want %q", got, views.LangEN)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Value != "en" || cookies[0].Path != "/" {
			t.Errorf("cookies = %+v; want lang=en on /", cookies)
		}
	})

	t.Run("cookie used when query missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: langCookieName, Value: "en"})
		if got := resolveLang(httptest.NewRecorder(), req); got != views.LangEN {
			t.Errorf("resolveLang() = %q; want %q", got, views.LangEN)
		}
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=fr", nil)
		req.AddCookie(&http.Cookie{Name: langCookieName, Value: "de"})
		rec := httptest.NewRecorder()
		if got := resolveLang(rec, req); got != views.DefaultLang {
			t.Errorf("resolveLang() = %q; want %q", got, views.DefaultLang)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("cookie set for invalid lang")
		}
	})
}

func Test_hasSearch(t *testing.T) {
	if hasSearch(httptest.NewRequest(http.MethodGet, "/?lang=en", nil)) {
		t.Error("hasSearch(lang only) = true; want false")
	}
	if !hasSearch(httptest.NewRequest(http.MethodGet, "/?month=1", nil)) {
		t.Error("hasSearch(month) = false; want true")
	}
}
