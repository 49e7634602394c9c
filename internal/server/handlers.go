package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/charts"
	"github.com/KaramelBytes/csvlens/internal/dataset"
	"github.com/KaramelBytes/csvlens/internal/logging"
	"github.com/KaramelBytes/csvlens/internal/render"
)

var errNoDataset = apperr.Insufficient("analysis", "no dataset is loaded; upload a CSV file first")

// selection carries every user choice a view depends on. Handlers parse it
// once from the query string and pass it to the core; nothing else about the
// UI state is kept between requests.
type selection struct {
	Target     string
	Candidates []string
	Column     string
	Columns    []string
	Kind       string
	Bins       int
	X, Y       string
	Size       render.Size
}

func parseSelection(r *http.Request) selection {
	q := r.URL.Query()
	sel := selection{
		Target:     strings.TrimSpace(q.Get("target")),
		Candidates: splitList(q["candidates"]),
		Column:     strings.TrimSpace(q.Get("column")),
		Columns:    splitList(q["columns"]),
		Kind:       strings.ToLower(strings.TrimSpace(q.Get("kind"))),
		X:          strings.TrimSpace(q.Get("x")),
		Y:          strings.TrimSpace(q.Get("y")),
	}
	if b, err := strconv.Atoi(q.Get("bins")); err == nil {
		sel.Bins = b
	}
	sel.Size.Width = clampDim(q.Get("w"))
	sel.Size.Height = clampDim(q.Get("h"))
	return sel
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func clampDim(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	if n > 2000 {
		return 2000
	}
	return n
}

func (s *Server) bins(sel selection) int {
	if sel.Bins > 0 {
		return sel.Bins
	}
	return s.cfg.HistogramBins
}

// dataset returns the session's dataset or errNoDataset.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, error) {
	ds, ok := s.sessions.Get(sessionID(w, r))
	if !ok {
		return nil, errNoDataset
	}
	return ds, nil
}

// pageData is shared by every HTML view.
type pageData struct {
	Title   string
	Error   string
	Dataset *datasetView
	View    any
}

type datasetView struct {
	Name        string
	Rows        int
	TotalRows   int
	Dropped     string
	Numeric     []string
	Categorical []string
	Stats       []analysis.ColumnStats
	Heatmap     *charts.HeatmapData
	Pairs       []analysis.PairCorr
	MaxCand     int
}

func (s *Server) viewOf(ds *dataset.Dataset) *datasetView {
	roles := dataset.Classify(ds)
	v := &datasetView{
		Name: ds.Name(), Rows: ds.NumRows(), TotalRows: ds.TotalRows(), Dropped: ds.DroppedColumn(),
		Numeric: roles.Numeric, Categorical: roles.Categorical, MaxCand: s.cfg.MaxCandidates,
	}
	if st, err := analysis.Describe(ds, roles.Numeric); err == nil {
		v.Stats = st
	}
	if m, err := analysis.FullMatrix(ds, roles.Numeric); err == nil {
		t := s.cfg.Thresholds()
		v.Heatmap = charts.Heatmap(m, t)
		v.Pairs = m.TopPairs(5, t)
	}
	return v
}

func (s *Server) page(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("template error", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageError re-renders the dashboard with err shown in place.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, ds *dataset.Dataset, err error) {
	s.record(r, err)
	data := pageData{Title: "csvlens", Error: apperr.Message(err)}
	if ds != nil {
		data.Dataset = s.viewOf(ds)
	}
	s.page(w, apperr.HTTPStatus(err), "index.html", data)
}

func (s *Server) record(r *http.Request, err error) {
	kind := apperr.Kind(err)
	s.metrics.AnalysisErrorsTotal.WithLabelValues(kind).Inc()
	l := logging.FromContext(r.Context())
	if kind == apperr.KindInternal {
		l.Error("request failed", "path", r.URL.Path, "error", err)
		return
	}
	l.Debug("selection rejected", "path", r.URL.Path, "kind", kind, "error", err)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(w, r)
	data := pageData{Title: "csvlens"}
	if err == nil {
		data.Dataset = s.viewOf(ds)
	}
	s.page(w, http.StatusOK, "index.html", data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	r = r.WithContext(logging.WithSession(r.Context(), id))
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.metrics.UploadsTotal.WithLabelValues("too_large").Inc()
			s.pageError(w, r, nil, apperr.Invalid("file", "", fmt.Sprintf("the file exceeds the %d MB upload limit", s.cfg.MaxUploadMB)))
			return
		}
		s.metrics.UploadsTotal.WithLabelValues(apperr.KindInvalidSelection).Inc()
		s.pageError(w, r, nil, apperr.Invalid("file", "", "choose a CSV file to upload"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.metrics.UploadsTotal.WithLabelValues(apperr.KindInvalidSelection).Inc()
		s.pageError(w, r, nil, apperr.Invalid("file", "", "choose a CSV file to upload"))
		return
	}
	defer f.Close()

	opt := s.cfg.LoadOptions()
	opt.Name = hdr.Filename
	if r.FormValue("keep_id") != "" {
		opt.DropIDColumn = false
	}
	ds, err := dataset.Load(f, opt)
	if err != nil {
		s.metrics.UploadsTotal.WithLabelValues(apperr.Kind(err)).Inc()
		s.pageError(w, r, nil, err)
		return
	}
	s.sessions.Put(id, ds)
	s.metrics.UploadsTotal.WithLabelValues("ok").Inc()
	s.metrics.UploadRows.Observe(float64(ds.NumRows()))
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	logging.FromContext(r.Context()).Info("dataset loaded",
		"file", ds.Name(), "rows", ds.NumRows(), "columns", ds.NumColumns(), "dropped", ds.DroppedColumn())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(sessionID(w, r))
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type correlateView struct {
	Target       string
	Coefficients []analysis.Coefficient
	Undefined    []string
	ChartURL     template.URL
	Scatters     []template.URL
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(w, r)
	if err != nil {
		s.pageError(w, r, nil, err)
		return
	}
	sel := parseSelection(r)
	res, err := analysis.Correlate(ds, sel.Target, sel.Candidates, s.cfg.AnalysisOptions())
	if err != nil {
		s.pageError(w, r, ds, err)
		return
	}
	bars := charts.CorrelationBars(res)
	v := correlateView{Target: res.Target, Coefficients: res.Coefficients, Undefined: bars.Undefined}
	if len(bars.Bars) > 0 {
		q := url.Values{"target": {sel.Target}, "candidates": {strings.Join(sel.Candidates, ",")}}
		v.ChartURL = template.URL("/charts/correlation.png?" + q.Encode())
	}
	for _, c := range res.Coefficients {
		if c.N == 0 {
			continue
		}
		q := url.Values{"x": {c.Variable}, "y": {res.Target}}
		v.Scatters = append(v.Scatters, template.URL("/charts/scatter.png?"+q.Encode()))
	}
	s.page(w, http.StatusOK, "correlate.html", pageData{Title: "Correlation with " + res.Target, Dataset: s.viewOf(ds), View: v})
}

type categoriesView struct {
	Table    *analysis.FrequencyTable
	Pie      *charts.PieData
	Kind     string
	ChartURL template.URL
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(w, r)
	if err != nil {
		s.pageError(w, r, nil, err)
		return
	}
	sel := parseSelection(r)
	ft, err := analysis.Frequencies(ds, sel.Column)
	if err != nil {
		s.pageError(w, r, ds, err)
		return
	}
	kind := "bar"
	if sel.Kind == "pie" {
		kind = "pie"
	}
	v := categoriesView{Table: ft, Kind: kind}
	if pie, err := charts.Pie(ft); err == nil {
		v.Pie = pie
		q := url.Values{"column": {ft.Column}}
		v.ChartURL = template.URL("/charts/" + kind + ".png?" + q.Encode())
	}
	s.page(w, http.StatusOK, "categories.html", pageData{Title: "Categories of " + ft.Column, Dataset: s.viewOf(ds), View: v})
}

type distributionView struct {
	Stats        analysis.ColumnStats
	Histogram    *charts.HistogramData
	HistogramURL template.URL
	BoxURL       template.URL
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(w, r)
	if err != nil {
		s.pageError(w, r, nil, err)
		return
	}
	sel := parseSelection(r)
	if sel.Column == "" {
		s.pageError(w, r, ds, apperr.Invalid("column", "", "choose a numeric column"))
		return
	}
	st, err := analysis.Describe(ds, []string{sel.Column})
	if err != nil {
		s.pageError(w, r, ds, err)
		return
	}
	v := distributionView{Stats: st[0]}
	if h, err := charts.Histogram(ds, sel.Column, s.bins(sel)); err == nil {
		v.Histogram = h
		q := url.Values{"column": {sel.Column}, "bins": {strconv.Itoa(len(h.Bins))}}
		v.HistogramURL = template.URL("/charts/histogram.png?" + q.Encode())
		v.BoxURL = template.URL("/charts/box.png?" + url.Values{"column": {sel.Column}}.Encode())
	}
	s.page(w, http.StatusOK, "distribution.html", pageData{Title: "Distribution of " + sel.Column, Dataset: s.viewOf(ds), View: v})
}

// handleChart renders one PNG. Errors come back as plain text with the
// taxonomy status so an <img> simply fails to load.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(w, r)
	if err != nil {
		s.chartError(w, r, err)
		return
	}
	sel := parseSelection(r)
	var buf bytes.Buffer
	switch chi.URLParam(r, "kind") {
	case "scatter":
		var d *charts.ScatterData
		if d, err = charts.Scatter(ds, sel.X, sel.Y); err == nil {
			err = render.Scatter(&buf, d, sel.Size)
		}
	case "histogram":
		var d *charts.HistogramData
		if d, err = charts.Histogram(ds, sel.Column, s.bins(sel)); err == nil {
			err = render.Histogram(&buf, d, sel.Size)
		}
	case "box":
		var st []analysis.ColumnStats
		if st, err = analysis.Describe(ds, []string{sel.Column}); err == nil {
			var d *charts.BoxplotData
			if d, err = charts.Boxplot(st[0]); err == nil {
				err = render.Boxplot(&buf, d, sel.Size)
			}
		}
	case "bar", "pie":
		var ft *analysis.FrequencyTable
		if ft, err = analysis.Frequencies(ds, sel.Column); err == nil {
			if chi.URLParam(r, "kind") == "bar" {
				var d *charts.BarsData
				if d, err = charts.Bars(ft); err == nil {
					err = render.Bars(&buf, d, sel.Size)
				}
			} else {
				var d *charts.PieData
				if d, err = charts.Pie(ft); err == nil {
					err = render.Pie(&buf, d, sel.Size)
				}
			}
		}
	case "correlation":
		var res *analysis.CorrelationResult
		if res, err = analysis.Correlate(ds, sel.Target, sel.Candidates, s.cfg.AnalysisOptions()); err == nil {
			err = render.CorrelationBars(&buf, charts.CorrelationBars(res), sel.Size)
		}
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.chartError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) chartError(w http.ResponseWriter, r *http.Request, err error) {
	s.record(r, err)
	http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
}
