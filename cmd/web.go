package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/plot"

	"github.com/zalepa/nycdiscovery/dataset"
	"github.com/zalepa/nycdiscovery/metrics"
	"github.com/zalepa/nycdiscovery/render"
	"github.com/zalepa/nycdiscovery/store"
	"github.com/zalepa/nycdiscovery/views"
)

type metadata struct {
	Attributes     []dataset.Attribute `json:"attributes"`
	Boroughs       []string            `json:"boroughs"`
	Categories     []string            `json:"categories"`
	Years          yearRange           `json:"years"`
	ComplaintYears []int               `json:"complaintYears"`
	Defaults       views.Selection     `json:"defaults"`
}

type yearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type status struct {
	Metrics    metrics.Snapshot `json:"metrics"`
	Years      yearRange        `json:"years"`
	Columns    int              `json:"columns"`
	Complaints int              `json:"complaints"`
	Snapshot   *store.Import    `json:"snapshot,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

// server answers dashboard requests against the holder's current snapshot.
type server struct {
	holder   *dataset.Holder
	defaults views.Selection
	metrics  *metrics.Metrics
	log      *zap.Logger
	snapshot *store.Import
}

func newServer(h *dataset.Holder, defaults views.Selection, m *metrics.Metrics, log *zap.Logger, snapshot *store.Import) *server {
	return &server{holder: h, defaults: defaults, metrics: m, log: log, snapshot: snapshot}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /api/metadata", s.handleMetadata)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/pairwise", s.handlePairwise)
	mux.HandleFunc("GET /api/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /api/complaints", s.handleComplaints)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /chart/{name}", s.handleChart)
	return s.withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.RecordRequest(rec.status)
		s.log.Info("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *server) engine() *views.Engine {
	return views.New(s.holder.Current())
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	data, err := htmlContent.ReadFile("web.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	st := s.holder.Current()
	lo, hi, _ := st.Numeric().YearBounds()
	respondJSON(w, http.StatusOK, metadata{
		Attributes:     st.Attributes(),
		Boroughs:       dataset.Boroughs,
		Categories:     dataset.ComplaintTypes,
		Years:          yearRange{Min: lo, Max: hi},
		ComplaintYears: st.ComplaintYears(),
		Defaults:       s.defaults,
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.holder.Current()
	lo, hi, _ := st.Numeric().YearBounds()
	respondJSON(w, http.StatusOK, status{
		Metrics:    s.metrics.Snapshot(),
		Years:      yearRange{Min: lo, Max: hi},
		Columns:    len(st.Attributes()),
		Complaints: len(st.Complaints()),
		Snapshot:   s.snapshot,
	})
}

func (s *server) handleTrend(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	v, err := s.engine().Trend(sel.Columns)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *server) handlePairwise(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	v, err := s.engine().Pairwise(sel.X, sel.Y, sel.From, sel.To)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	v, err := s.engine().Correlation(sel.X, sel.Y, sel.From, sel.To)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *server) handleComplaints(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.engine().Complaints(sel.Year))
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.engine().Dashboard(sel))
}

// chartNames lists the PNG charts served under /chart/.
var chartNames = []string{"trend", "scatter", "x-series", "y-series", "heatmap", "complaints"}

func (s *server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("name"), ".png")
	if !contains(chartNames, name) {
		http.NotFound(w, r)
		return
	}
	sel, err := parseSelection(r.URL.Query(), s.defaults)
	if err != nil {
		s.respondError(w, err)
		return
	}
	p, err := chartFor(s.engine(), name, sel)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, p, render.Width, render.Height); err != nil {
		s.log.Error("render chart", zap.String("chart", name), zap.Error(err))
		return
	}
	s.metrics.RecordChart()
}

// chartFor builds the named chart. A view that cannot be computed for the
// selection yields a placeholder carrying its notice.
func chartFor(e *views.Engine, name string, sel views.Selection) (*plot.Plot, error) {
	var (
		p   *plot.Plot
		err error
	)
	switch name {
	case "trend":
		var v views.TrendView
		if v, err = e.Trend(sel.Columns); err == nil {
			p, err = render.Trend(v)
		}
	case "scatter", "x-series", "y-series":
		var v views.PairwiseView
		if v, err = e.Pairwise(sel.X, sel.Y, sel.From, sel.To); err == nil {
			switch name {
			case "scatter":
				p, err = render.Scatter(v)
			case "x-series":
				p, err = render.YearSeries(v.YearX, v.X)
			default:
				p, err = render.YearSeries(v.YearY, v.Y)
			}
		}
	case "heatmap":
		var v views.CorrelationView
		if v, err = e.Correlation(sel.X, sel.Y, sel.From, sel.To); err == nil {
			if v.Rows == 0 {
				err = &views.NoDataInRangeError{X: sel.X, Y: sel.Y, From: sel.From, To: sel.To}
			} else {
				p, err = render.Heatmap(v)
			}
		}
	case "complaints":
		p, err = render.StackedBars(e.Complaints(sel.Year))
	default:
		return nil, fmt.Errorf("unknown chart %q", name)
	}
	if errors.Is(err, views.ErrNoDataInRange) || errors.Is(err, views.ErrUnknownColumn) {
		return render.Placeholder(views.Notice(err)), nil
	}
	return p, err
}

// badRequestError marks a malformed query parameter.
type badRequestError struct {
	param string
	err   error
}

func (e *badRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.param, e.err)
}

func (e *badRequestError) Unwrap() error { return e.err }

// parseSelection reads control values from the query, falling back to
// defaults for parameters that are absent. An empty column parameter
// selects no trend columns.
func parseSelection(q url.Values, defaults views.Selection) (views.Selection, error) {
	sel := defaults
	sel.Columns = append([]string(nil), defaults.Columns...)
	if cols, ok := q["column"]; ok {
		sel.Columns = sel.Columns[:0]
		for _, c := range cols {
			for _, part := range strings.Split(c, ",") {
				if part = strings.TrimSpace(part); part != "" {
					sel.Columns = append(sel.Columns, part)
				}
			}
		}
	}
	if v := q.Get("x"); v != "" {
		sel.X = v
	}
	if v := q.Get("y"); v != "" {
		sel.Y = v
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"from", &sel.From}, {"to", &sel.To}, {"year", &sel.Year}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sel, &badRequestError{param: p.name, err: err}
		}
		*p.dst = n
	}
	return sel, nil
}

func (s *server) respondError(w http.ResponseWriter, err error) {
	var bad *badRequestError
	switch {
	case errors.Is(err, views.ErrNoDataInRange):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Notice: views.Notice(err)})
	case errors.Is(err, views.ErrUnknownColumn):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Notice: views.Notice(err)})
	case errors.As(err, &bad):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
