package server

import (
	"encoding/json"
	"net/http"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/charts"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) apiFail(w http.ResponseWriter, r *http.Request, err error) {
	s.record(r, err)
	writeJSON(w, apperr.HTTPStatus(err), apiError{Error: apperr.Kind(err), Message: apperr.Message(err)})
}

// apiDataset wraps handlers that need the session dataset.
func (s *Server) apiDataset(fn func(ds *dataset.Dataset, sel selection) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.dataset(w, r)
		if err != nil {
			s.apiFail(w, r, err)
			return
		}
		out, err := fn(ds, parseSelection(r))
		if err != nil {
			s.apiFail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type summaryResponse struct {
	*analysis.Report
	Roles dataset.Roles `json:"roles"`
}

func (s *Server) apiSummary(ds *dataset.Dataset, _ selection) (any, error) {
	return summaryResponse{Report: analysis.BuildReport(ds, s.cfg.AnalysisOptions()), Roles: dataset.Classify(ds)}, nil
}

func (s *Server) apiDescribe(ds *dataset.Dataset, sel selection) (any, error) {
	if len(sel.Columns) == 0 {
		return analysis.DescribeAll(ds)
	}
	return analysis.Describe(ds, sel.Columns)
}

type correlateResponse struct {
	*analysis.CorrelationResult
	Chart *charts.CorrelationBarsData `json:"chart"`
}

func (s *Server) apiCorrelate(ds *dataset.Dataset, sel selection) (any, error) {
	res, err := analysis.Correlate(ds, sel.Target, sel.Candidates, s.cfg.AnalysisOptions())
	if err != nil {
		return nil, err
	}
	return correlateResponse{CorrelationResult: res, Chart: charts.CorrelationBars(res)}, nil
}

type matrixResponse struct {
	Matrix   *analysis.CorrMatrix `json:"matrix"`
	Heatmap  *charts.HeatmapData  `json:"heatmap"`
	TopPairs []analysis.PairCorr  `json:"top_pairs"`
}

func (s *Server) apiMatrix(ds *dataset.Dataset, sel selection) (any, error) {
	m, err := analysis.FullMatrix(ds, sel.Columns)
	if err != nil {
		return nil, err
	}
	t := s.cfg.Thresholds()
	return matrixResponse{Matrix: m, Heatmap: charts.Heatmap(m, t), TopPairs: m.TopPairs(0, t)}, nil
}

type frequenciesResponse struct {
	*analysis.FrequencyTable
	Bars *charts.BarsData `json:"bars,omitempty"`
	Pie  *charts.PieData  `json:"pie,omitempty"`
}

func (s *Server) apiFrequencies(ds *dataset.Dataset, sel selection) (any, error) {
	ft, err := analysis.Frequencies(ds, sel.Column)
	if err != nil {
		return nil, err
	}
	out := frequenciesResponse{FrequencyTable: ft}
	// Chart shapes are omitted for an all-missing column.
	if sel.Kind == "pie" {
		out.Pie, _ = charts.Pie(ft)
	} else {
		out.Bars, _ = charts.Bars(ft)
	}
	return out, nil
}

func (s *Server) apiScatter(ds *dataset.Dataset, sel selection) (any, error) {
	return charts.Scatter(ds, sel.X, sel.Y)
}

func (s *Server) apiHistogram(ds *dataset.Dataset, sel selection) (any, error) {
	return charts.Histogram(ds, sel.Column, s.bins(sel))
}

func (s *Server) apiBoxplot(ds *dataset.Dataset, sel selection) (any, error) {
	if sel.Column == "" {
		return nil, apperr.Invalid("column", "", "choose a numeric column")
	}
	st, err := analysis.Describe(ds, []string{sel.Column})
	if err != nil {
		return nil, err
	}
	return charts.Boxplot(st[0])
}
