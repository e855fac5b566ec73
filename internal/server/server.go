// Package server exposes analysis, transcripts, key settings and a playback
// WebSocket over HTTP for overlays such as a browser extension.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/credentials"
	"github.com/forPelevin/fallacycheck/internal/domain/transcript"
	"github.com/forPelevin/fallacycheck/internal/ports"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/youtube"
	"github.com/forPelevin/fallacycheck/internal/types"
	"github.com/forPelevin/fallacycheck/internal/usecase"
)

// Analyzer is the slice of the usecase the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, in usecase.Input) (usecase.Result, error)
	LoadTranscript(ctx context.Context, in usecase.Input) (types.VideoData, bool, error)
}

type Deps struct {
	Analyzer Analyzer
	Keys     ports.CredentialStore
	// EnvKey reports a key configured through the environment, which takes
	// precedence over the stored one.
	EnvKey func() string
	Logger *slog.Logger
}

type Server struct {
	d   Deps
	mux *http.ServeMux
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.EnvKey == nil {
		d.EnvKey = func() string { return "" }
	}
	s := &Server{d: d, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	s.mux.HandleFunc("GET /api/settings/key", s.handleGetKey)
	s.mux.HandleFunc("PUT /api/settings/key", s.handlePutKey)
	s.mux.HandleFunc("DELETE /api/settings/key", s.handleDeleteKey)
	s.mux.HandleFunc("GET /api/watch", s.handleWatch)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Minute, // analysis waits on the model
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.d.Logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.d.Logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type analyzeRequest struct {
	Video string `json:"video"`
	Title string `json:"title,omitempty"`
}

type analyzeResponse struct {
	types.Report
	Cached bool `json:"cached"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := youtube.ExtractVideoID(req.Video)
	if id == "" {
		writeError(w, http.StatusBadRequest, "video must be a YouTube URL or 11-character video id")
		return
	}

	res, err := s.d.Analyzer.Analyze(r.Context(), usecase.Input{VideoID: id, Title: req.Title})
	if err != nil {
		s.fail(w, "analyze", id, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Report: res.Report(), Cached: res.Cached})
}

type transcriptResponse struct {
	VideoID  string          `json:"video_id"`
	Title    string          `json:"title"`
	Segments []types.Segment `json:"segments"`
	Cached   bool            `json:"cached"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := youtube.ExtractVideoID(r.URL.Query().Get("v"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "query parameter v must be a YouTube URL or video id")
		return
	}
	v, cached, err := s.d.Analyzer.LoadTranscript(r.Context(), usecase.Input{VideoID: id})
	if err != nil {
		s.fail(w, "transcript", id, err)
		return
	}
	segs := transcript.Parse(v.Transcript)
	if segs == nil {
		segs = []types.Segment{}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{
		VideoID:  v.VideoID,
		Title:    v.Title,
		Segments: segs,
		Cached:   cached,
	})
}

type keyStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"`
	Masked     string `json:"masked,omitempty"`
}

func (s *Server) keyStatus() (keyStatus, error) {
	if v := strings.TrimSpace(s.d.EnvKey()); v != "" {
		return keyStatus{Configured: true, Source: "env", Masked: credentials.Mask(v)}, nil
	}
	v, err := s.d.Keys.Get()
	if errors.Is(err, apperr.ErrMissingCredential) {
		return keyStatus{}, nil
	}
	if err != nil {
		return keyStatus{}, err
	}
	return keyStatus{Configured: true, Source: "store", Masked: credentials.Mask(v)}, nil
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	st, err := s.keyStatus()
	if err != nil {
		s.fail(w, "read key", "", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type putKeyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handlePutKey(w http.ResponseWriter, r *http.Request) {
	var req putKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "key is empty")
		return
	}
	if err := s.d.Keys.Set(req.Key); err != nil {
		s.fail(w, "save key", "", err)
		return
	}
	s.d.Logger.Info("api key saved")
	s.handleGetKey(w, r)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Keys.Clear(); err != nil {
		s.fail(w, "clear key", "", err)
		return
	}
	s.d.Logger.Info("api key cleared")
	s.handleGetKey(w, r)
}

func (s *Server) fail(w http.ResponseWriter, op, videoID string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.d.Logger.Error(op+" failed", "video", videoID, "error", err)
	} else {
		s.d.Logger.Warn(op+" failed", "video", videoID, "error", err)
	}
	writeError(w, status, apperr.UserMessage(err))
}

// StatusFor maps an error kind to the HTTP status reported to clients.
func StatusFor(err error) int {
	var up *apperr.UpstreamError
	switch {
	case errors.Is(err, apperr.ErrMissingCredential), errors.Is(err, apperr.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNoTranscript):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAuthRequired):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &up):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
