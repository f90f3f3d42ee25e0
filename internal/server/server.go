// Package server exposes the engine over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness and build version
//	GET  /v1/algorithms    every category and strategy
//	POST /v1/runs          run an engine.Request, returns the response and a run ID
//	GET  /v1/runs/{id}     fetch a previous run
//	GET  /v1/stats         run and cache counters
//
// The server adds no validation of its own; the engine rejects malformed
// requests and the error code selects the status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/chipforge/pkg/buildinfo"
	"github.com/matzehuels/chipforge/pkg/cache"
	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/observability"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// runTTL is how long finished runs can be fetched by ID.
const runTTL = 24 * time.Hour

// Server handles HTTP requests. Create it with New.
type Server struct {
	runner *engine.Runner
	runs   cache.Cache
	stats  *observability.Stats
	log    *log.Logger
}

// New creates a server. Runs are kept in runs for later retrieval; a nil
// store keeps them in memory. A nil stats disables /v1/stats counters.
func New(runner *engine.Runner, runs cache.Cache, stats *observability.Stats, logger *log.Logger) *Server {
	if runs == nil {
		runs = cache.NewMemoryCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, runs: runs, stats: stats, log: logger}
}

// Handler returns the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/algorithms", s.algorithms)
		r.Post("/runs", s.createRun)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/stats", s.getStats)
		r.Get("/models", s.listModels)
		r.Delete("/models/{name}", s.deleteModel)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), elapsed)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", elapsed)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

type algorithmList struct {
	Categories []engine.Category  `json:"categories"`
	Algorithms []engine.Algorithm `json:"algorithms"`
}

func (s *Server) algorithms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, algorithmList{Categories: engine.Categories(), Algorithms: engine.Algorithms()})
}

// Run is a finished run as returned by the API.
type Run struct {
	ID       string           `json:"id"`
	Cached   bool             `json:"cached"`
	Created  time.Time        `json:"created"`
	Response *engine.Response `json:"response"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	resp, hit, err := s.runner.Run(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	run := Run{ID: uuid.NewString(), Cached: hit, Created: time.Now().UTC(), Response: resp}
	if data, err := json.Marshal(run); err == nil {
		if err := s.runs.Set(r.Context(), "run:"+run.ID, data, runTTL); err != nil {
			s.log.Warn("cannot store run", "id", run.ID, "error", err)
		}
	}
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "invalid run id %q", id))
		return
	}
	data, ok, err := s.runs.Get(r.Context(), "run:"+id)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "load run"))
		return
	}
	if !ok {
		writeError(w, errs.New(errs.ErrCodeNotFound, "run %s not found", id))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type modelList struct {
	Models []engine.ModelInfo `json:"models"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	infos, err := s.runner.Models.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if infos == nil {
		infos = []engine.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, modelList{Models: infos})
}

func (s *Server) deleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Models.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, observability.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Field   string `json:"field,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
}

// status maps an error's kind to an HTTP status.
func status(err error) int {
	switch errs.GetCode(err).Kind() {
	case errs.KindConfiguration:
		return http.StatusBadRequest
	case errs.KindUnsupported:
		return http.StatusUnprocessableEntity
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = string(errs.GetCode(err))
	if body.Error.Code == "" {
		body.Error.Code = string(errs.ErrCodeInternal)
	}
	body.Error.Field = errs.FieldOf(err)
	body.Error.Message = errs.UserMessage(err)
	writeJSON(w, status(err), body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
