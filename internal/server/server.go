// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crimson-sun/worktally/internal/connector/csvfile"
	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/pipeline"
)

const defaultMaxBody = 10 << 20

// Server handles report requests whose body is a CSV export.
type Server struct {
	pipeline *pipeline.Pipeline
	csv      csvfile.Options
	origins  []string
	maxBody  int64
}

// Option configures a Server.
type Option func(*Server)

// WithCSV sets how request bodies are decoded.
func WithCSV(opts csvfile.Options) Option {
	return func(s *Server) { s.csv = opts }
}

// WithAllowedOrigins sets the CORS origins. Default is "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMaxBody limits request bodies to n bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New creates a Server backed by p.
func New(p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		origins:  []string{"*"},
		maxBody:  defaultMaxBody,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/reports/{granularity}", s.handleReport)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Record  *int   `json:"record,omitempty"`
	Line    *int   `json:"line,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(model.Granularity(chi.URLParam(r, "granularity")), r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	raws, err := csvfile.Read(r.Context(), body, s.csv)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_csv", Message: err.Error()})
		return
	}

	res, err := s.pipeline.Process(r.Context(), raws, req)
	if err != nil {
		if errors.Is(err, duration.ErrMalformedTemporalInput) {
			eb := errorBody{Error: "malformed_temporal_input", Message: err.Error()}
			var recErr *engine.RecordError
			if errors.As(err, &recErr) {
				eb.Record = &recErr.Index
				if recErr.Line > 0 {
					eb.Line = &recErr.Line
				}
			}
			writeJSON(w, http.StatusUnprocessableEntity, eb)
			return
		}
		slog.Error("report failed", "error", err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "report failed"})
		return
	}

	writeJSON(w, http.StatusOK, res.Reports[0])
}

// parseRequest reads the optional start/end range and shares flag.
// start and end must be given together.
func parseRequest(g model.Granularity, r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := pipeline.Request{Granularities: []model.Granularity{g}}

	if v := q.Get("shares"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("shares: %w", err)
		}
		req.Shares = b
	}

	start, end := q.Get("start"), q.Get("end")
	if (start == "") != (end == "") {
		return req, errors.New("start and end must be given together")
	}

	switch g {
	case model.ByMonth:
		if start == "" {
			return req, nil
		}
		lo, err := model.ParseMonth(start)
		if err != nil {
			return req, fmt.Errorf("start: %w", err)
		}
		hi, err := model.ParseMonth(end)
		if err != nil {
			return req, fmt.Errorf("end: %w", err)
		}
		req.Months = &pipeline.Range[time.Month]{Start: lo, End: hi}
	case model.ByDate:
		if start == "" {
			return req, nil
		}
		lo, err := model.ParseDate(start)
		if err != nil {
			return req, fmt.Errorf("start: %w", err)
		}
		hi, err := model.ParseDate(end)
		if err != nil {
			return req, fmt.Errorf("end: %w", err)
		}
		req.Dates = &pipeline.Range[model.Date]{Start: lo, End: hi}
	default:
		return req, fmt.Errorf("unknown granularity %q (want month or date)", g)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
