package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"analogfinder/internal/modules/climate/chart"
	"analogfinder/internal/modules/climate/export"
	"analogfinder/internal/modules/climate/service"
	"analogfinder/internal/modules/climate/types"
	"analogfinder/internal/modules/climate/views"
	"analogfinder/internal/utils"
)

func (c *climateControllerImpl) handleFinder(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	lang := resolveLang(w, r)
	criteria, form, parseErr := parseCriteria(r)
	data := views.NewFinderData(lang, form, criteria.PDOPhase, criteria.Order)

	if hasSearch(r) {
		results, err := c.searchResults(r, lang, criteria, parseErr)
		if err != nil {
			c.logger.Error("finder: search failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to search analogs")
			return
		}
		data.Results = results
	} else {
		data.PreviewChartURL = "/charts/recent.svg"
	}

	summary, err := c.service.Summary(r.Context())
	if err != nil {
		c.logger.Warn("finder: dataset summary unavailable", "error", err)
	} else {
		data.Dataset = views.NewDatasetData(lang, summary)
	}

	var buf bytes.Buffer
	if err := views.RenderFinder(&buf, data); err != nil {
		c.logger.Error("finder template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// handleAnalogsPartial answers the HTMX form submit. Invalid criteria are
// rendered into the partial with 200 so HTMX swaps the message in.
func (c *climateControllerImpl) handleAnalogsPartial(w http.ResponseWriter, r *http.Request) {
	lang := resolveLang(w, r)
	criteria, _, parseErr := parseCriteria(r)

	results, err := c.searchResults(r, lang, criteria, parseErr)
	if err != nil {
		c.logger.Error("analogs partial: search failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to search analogs")
		return
	}

	var buf bytes.Buffer
	if err := views.RenderResultsPartial(&buf, results); err != nil {
		c.logger.Error("analogs partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// searchResults turns a parsed form into the results view. Only unexpected
// failures are returned as errors.
func (c *climateControllerImpl) searchResults(r *http.Request, lang views.Lang, criteria types.Criteria, parseErr error) (*views.ResultsData, error) {
	if parseErr != nil {
		return views.NewErrorResults(lang, parseErr.Error()), nil
	}
	result, err := c.service.Search(r.Context(), criteria)
	if errors.Is(err, service.ErrInvalidCriteria) {
		msg := strings.TrimPrefix(err.Error(), service.ErrInvalidCriteria.Error()+": ")
		return views.NewErrorResults(lang, msg), nil
	}
	if err != nil {
		return nil, err
	}
	return views.NewResultsData(lang, result, encodeCriteria(result.Criteria)), nil
}

func (c *climateControllerImpl) handleDatasetPartial(w http.ResponseWriter, r *http.Request) {
	lang := resolveLang(w, r)
	summary, err := c.service.Summary(r.Context())
	if err != nil {
		c.logger.Error("dataset partial: get summary failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset summary")
		return
	}

	var buf bytes.Buffer
	if err := views.RenderDatasetPartial(&buf, views.NewDatasetData(lang, summary)); err != nil {
		c.logger.Error("dataset partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBody(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *climateControllerImpl) handleAnalogsChart(format chart.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := c.search(w, r)
		if !ok {
			return
		}
		series, err := c.service.Series(r.Context(), 0)
		if err != nil {
			c.logger.Error("analogs chart: get series failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load series")
			return
		}
		c.writeChart(w, format, func(buf *bytes.Buffer) error {
			return chart.Analogs(buf, format, series, result.Matches)
		})
	}
}

func (c *climateControllerImpl) handleRecentChart(format chart.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series, err := c.service.Series(r.Context(), previewFromYear)
		if err != nil {
			c.logger.Error("recent chart: get series failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load series")
			return
		}
		c.writeChart(w, format, func(buf *bytes.Buffer) error {
			return chart.Recent(buf, format, series, "")
		})
	}
}

func (c *climateControllerImpl) writeChart(w http.ResponseWriter, format chart.Format, draw func(*bytes.Buffer) error) {
	start := time.Now()
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		c.logger.Error("chart render failed", "format", format, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	c.service.Metrics().ChartRenderDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())

	w.Header().Set("Cache-Control", "no-cache")
	utils.WriteBody(w, http.StatusOK, format.ContentType(), buf.Bytes())
}

func (c *climateControllerImpl) handleAnalogs(w http.ResponseWriter, r *http.Request) {
	result, ok := c.search(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (c *climateControllerImpl) handleAnalogsExport(w http.ResponseWriter, r *http.Request) {
	result, ok := c.search(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Workbook(&buf, result); err != nil {
		c.logger.Error("analogs export failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	c.service.Metrics().Exports.WithLabelValues("xlsx").Inc()

	filename := fmt.Sprintf("analogs-month-%02d.xlsx", result.Criteria.Month)
	utils.WriteAttachment(w, export.ContentType, filename, buf.Bytes())
}

// search parses and runs the query-string search for the non-HTML
// endpoints. It writes the error response itself and reports ok=false.
func (c *climateControllerImpl) search(w http.ResponseWriter, r *http.Request) (types.Result, bool) {
	criteria, _, err := parseCriteria(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return types.Result{}, false
	}
	result, err := c.service.Search(r.Context(), criteria)
	if errors.Is(err, service.ErrInvalidCriteria) {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return types.Result{}, false
	}
	if err != nil {
		c.logger.Error("analog search failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to search analogs")
		return types.Result{}, false
	}
	return result, true
}

func (c *climateControllerImpl) handleIndices(w http.ResponseWriter, r *http.Request) {
	fromYear, err := parseFromYear(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := c.service.Series(r.Context(), fromYear)
	if err != nil {
		c.logger.Error("indices: get series failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load indices")
		return
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (c *climateControllerImpl) handleDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := c.service.Summary(r.Context())
	if err != nil {
		c.logger.Error("dataset: get summary failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset summary")
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}
