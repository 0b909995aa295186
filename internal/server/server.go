package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/history"
	"github.com/juststeveking/readycheck/internal/monitor"
	"github.com/juststeveking/readycheck/internal/report"
)

// Source supplies the most recent completed run.
type Source interface {
	Latest() (monitor.Result, bool)
}

// Server exposes the latest readiness verdict over HTTP.
type Server struct {
	Logger  *zap.Logger
	Source  Source
	Metrics http.Handler
	History *history.Store
}

func NewServer(l *zap.Logger, src Source, metrics http.Handler, hist *history.Store) *Server {
	return &Server{Logger: l, Source: src, Metrics: metrics, History: hist}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", s.handleReady)
	r.Get("/report", s.handleReport)
	if s.History != nil {
		r.Get("/history", s.handleHistory)
	}
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	return r
}

type readyPayload struct {
	Ready       bool      `json:"ready"`
	Verdict     string    `json:"verdict"`
	Score       float64   `json:"score"`
	Scored      bool      `json:"scored"`
	Grade       string    `json:"grade,omitempty"`
	Critical    int       `json:"critical_failures"`
	GeneratedAt time.Time `json:"generated_at"`
	Error       string    `json:"error,omitempty"`
}

// handleReady answers 200 only when the latest run certified the target.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	res, ok := s.Source.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, readyPayload{Verdict: "PENDING", Error: "no completed run yet"})
		return
	}

	rep := res.Report
	p := readyPayload{
		Ready:       rep.Ready,
		Verdict:     report.Verdict(rep),
		Score:       rep.OverallScore,
		Scored:      rep.Scored,
		Grade:       rep.Grade,
		Critical:    len(rep.CriticalFailures),
		GeneratedAt: rep.GeneratedAt,
	}
	status := http.StatusOK
	if !rep.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, p)
}

var contentTypes = map[string]string{
	report.FormatJSON:     "application/json",
	report.FormatText:     "text/plain; charset=utf-8",
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatHTML:     "text/html; charset=utf-8",
}

// handleReport renders the latest report; ?format= picks the renderer.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.Source.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run yet"})
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	ct, ok := contentTypes[format]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format " + format})
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, report.Document{Report: res.Report, Load: res.Load}, format); err != nil {
		s.Logger.Error("render_report", zap.String("format", format), zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Write(buf.Bytes())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.History.Load()
	if err != nil {
		s.Logger.Error("load_history", zap.Error(err))
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
