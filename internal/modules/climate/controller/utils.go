package controller

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"analogfinder/internal/modules/climate/types"
	"analogfinder/internal/modules/climate/views"
)

const (
	defaultMonth        = 1
	defaultONI          = -0.5
	defaultIOD          = -0.4
	defaultPDOPhase     = types.PDONegative
	defaultPDOThreshold = 0.5
	defaultTopN         = 10
	maxTopN             = 20

	// previewFromYear is where the chart shown before any search starts.
	previewFromYear = 2000

	minYear = 1800
	maxYear = 2200

	langCookieName   = "analogfinder_lang"
	langCookieMaxAge = 365 * 24 * time.Hour
)

// parseCriteria reads the search form from the query string. The returned
// form always echoes what was submitted so the sidebar can be redrawn even
// when err != nil.
func parseCriteria(r *http.Request) (c types.Criteria, form views.Form, err error) {
	q := r.URL.Query()
	form = views.Form{
		Month:        defaultMonth,
		ONI:          formatFloat(defaultONI),
		IOD:          formatFloat(defaultIOD),
		ONITol:       strings.TrimSpace(q.Get("oni_tol")),
		IODTol:       strings.TrimSpace(q.Get("iod_tol")),
		PDOThreshold: formatFloat(defaultPDOThreshold),
		TopN:         defaultTopN,
	}
	if s := strings.TrimSpace(q.Get("oni")); s != "" {
		form.ONI = s
	}
	if s := strings.TrimSpace(q.Get("iod")); s != "" {
		form.IOD = s
	}
	if s := strings.TrimSpace(q.Get("pdo_threshold")); s != "" {
		form.PDOThreshold = s
	}

	c = types.Criteria{
		Month:        defaultMonth,
		PDOPhase:     defaultPDOPhase,
		PDOThreshold: defaultPDOThreshold,
		Limit:        defaultTopN,
		Order:        types.OrderScore,
	}

	if s := strings.TrimSpace(q.Get("month")); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 1 || n > 12 {
			return c, form, errors.New("invalid 'month' (expected 1-12)")
		}
		c.Month = n
		form.Month = n
	}

	if s := strings.TrimSpace(q.Get("pdo_phase")); s != "" {
		phase, phaseErr := types.ParsePDOPhase(s)
		if phaseErr != nil {
			return c, form, errors.New("invalid 'pdo_phase' (expected pos, neg, neutral or any)")
		}
		c.PDOPhase = phase
	}

	if s := strings.TrimSpace(q.Get("top_n")); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 1 || n > maxTopN {
			return c, form, fmt.Errorf("invalid 'top_n' (expected 1-%d)", maxTopN)
		}
		c.Limit = n
		form.TopN = n
	}

	switch s := strings.TrimSpace(q.Get("sort")); s {
	case "", string(types.OrderScore):
	case string(types.OrderYear):
		c.Order = types.OrderYear
	default:
		return c, form, errors.New("invalid 'sort' (expected score or year)")
	}

	threshold, err := parseFinite(form.PDOThreshold)
	if err != nil || threshold < 0 {
		return c, form, errors.New("invalid 'pdo_threshold' (expected number >= 0)")
	}
	c.PDOThreshold = threshold

	oni, err := parseTarget(types.ONI, form.ONI, form.ONITol)
	if err != nil {
		return c, form, err
	}
	iod, err := parseTarget(types.IOD, form.IOD, form.IODTol)
	if err != nil {
		return c, form, err
	}
	c.Targets = []types.Target{oni, iod}

	for _, s := range q["target"] {
		t, targetErr := parseTargetSpec(s)
		if targetErr != nil {
			return c, form, targetErr
		}
		if _, dup := c.TargetFor(t.Index); dup {
			return c, form, fmt.Errorf("invalid 'target' %q: %s already set", s, t.Index)
		}
		c.Targets = append(c.Targets, t)
	}

	return c, form, nil
}

func parseTarget(idx types.Index, value, tolerance string) (types.Target, error) {
	name := strings.ToLower(string(idx))
	v, err := parseFinite(value)
	if err != nil {
		return types.Target{}, fmt.Errorf("invalid '%s' (expected number)", name)
	}
	t := types.Target{Index: idx, Value: v}
	if tolerance == "" {
		return t, nil
	}
	tol, err := parseFinite(tolerance)
	if err != nil || tol < 0 {
		return types.Target{}, fmt.Errorf("invalid '%s_tol' (expected number >= 0)", name)
	}
	t.Tolerance = &tol
	return t, nil
}

// parseFinite is strconv.ParseFloat without NaN and the infinities.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, types.ErrNonFinite
	}
	return v, nil
}

// parseTargetSpec parses "INDEX:value[:tolerance]".
func parseTargetSpec(s string) (types.Target, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.Target{}, fmt.Errorf("invalid 'target' %q (expected INDEX:value[:tolerance])", s)
	}
	idx, err := types.ParseIndex(parts[0])
	if err != nil || idx == types.PDO {
		return types.Target{}, fmt.Errorf("invalid 'target' %q: unknown index", s)
	}
	tol := ""
	if len(parts) == 3 {
		tol = strings.TrimSpace(parts[2])
	}
	t, err := parseTarget(idx, strings.TrimSpace(parts[1]), tol)
	if err != nil {
		return types.Target{}, fmt.Errorf("invalid 'target' %q", s)
	}
	return t, nil
}

// encodeCriteria is the inverse of parseCriteria; chart and export links
// reuse it so they reproduce the same search.
func encodeCriteria(c types.Criteria) string {
	v := url.Values{}
	v.Set("month", strconv.Itoa(c.Month))
	v.Set("pdo_phase", string(c.PDOPhase))
	v.Set("pdo_threshold", formatFloat(c.PDOThreshold))
	if c.Limit > 0 {
		v.Set("top_n", strconv.Itoa(c.Limit))
	}
	if c.Order != "" {
		v.Set("sort", string(c.Order))
	}
	for _, t := range c.Targets {
		switch t.Index {
		case types.ONI, types.IOD:
			name := strings.ToLower(string(t.Index))
			v.Set(name, formatFloat(t.Value))
			if t.Tolerance != nil {
				v.Set(name+"_tol", formatFloat(*t.Tolerance))
			}
		default:
			spec := string(t.Index) + ":" + formatFloat(t.Value)
			if t.Tolerance != nil {
				spec += ":" + formatFloat(*t.Tolerance)
			}
			v.Add("target", spec)
		}
	}
	return v.Encode()
}

func parseFromYear(r *http.Request) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("from_year"))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'from_year' (expected integer)")
	}
	if n < minYear || n > maxYear {
		return 0, fmt.Errorf("'from_year' must be between %d and %d", minYear, maxYear)
	}
	return n, nil
}

// hasSearch reports whether the request carries a submitted search form.
func hasSearch(r *http.Request) bool {
	return r.URL.Query().Has("month")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// resolveLang picks the page language: an explicit ?lang= wins and is
// remembered in a cookie, then the cookie, then the default.
func resolveLang(w http.ResponseWriter, r *http.Request) views.Lang {
	if s := r.URL.Query().Get("lang"); s != "" {
		if lang, ok := views.ParseLang(s); ok {
			writeLangCookie(w, lang)
			return lang
		}
	}
	if lang, ok := readLangCookie(r); ok {
		return lang
	}
	return views.DefaultLang
}

func readLangCookie(r *http.Request) (views.Lang, bool) {
	cookie, err := r.Cookie(langCookieName)
	if err != nil {
		return "", false
	}
	return views.ParseLang(cookie.Value)
}

func writeLangCookie(w http.ResponseWriter, lang views.Lang) {
	http.SetCookie(w, &http.Cookie{
		Name:     langCookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int(langCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
