package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/config"
	"github.com/JakeFAU/referer-classifier/internal/events"
	"github.com/JakeFAU/referer-classifier/internal/metrics"
	"github.com/JakeFAU/referer-classifier/internal/refdb"
	"github.com/JakeFAU/referer-classifier/internal/referer"
)

const maxBodyBytes = 1 << 20

// Database is the view of the active referer database the handlers need.
type Database interface {
	Classifier() (*referer.Classifier, error)
	Info() (refdb.Info, error)
	Ready() bool
	Load(ctx context.Context) error
}

// Emitter accepts classification events for asynchronous delivery.
type Emitter interface {
	Emit(event events.Event)
}

// Server wires HTTP handlers to the referer database and event pipeline.
type Server struct {
	router  chi.Router
	db      Database
	emitter Emitter
	builder *events.Builder
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. emitter may be
// nil, in which case no events are produced.
func NewServer(
	db Database,
	emitter Emitter,
	builder *events.Builder,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = events.NewBuilder(nil, nil)
	}
	s := &Server{
		db:      db,
		emitter: emitter,
		builder: builder,
		cfg:     cfg,
		logger:  logger,
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if cfg.RateLimit.Enabled {
			r.Use(rateLimitMiddleware(newClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
		}
		r.Get("/classify", s.classifyOne)
		r.Post("/classify", s.classifyBatch)
		r.Get("/database", s.databaseInfo)
		r.Post("/database/reload", s.reloadDatabase)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.db.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) classifyOne(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refererURL := q.Get("referer")
	if refererURL == "" {
		writeError(w, http.StatusBadRequest, "referer is required")
		return
	}
	cl, err := s.db.Classifier()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	res, err := s.classify(cl, refererURL, q.Get("current"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type classifyItem struct {
	Referer string `json:"referer"`
	Current string `json:"current"`
}

type batchRequest struct {
	Items []classifyItem `json:"items"`
}

type batchResult struct {
	Result *referer.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type batchResponse struct {
	Fingerprint string        `json:"fingerprint"`
	Results     []batchResult `json:"results"`
}

func (s *Server) classifyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}
	if s.cfg.Server.MaxBatch > 0 && len(req.Items) > s.cfg.Server.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d exceeds limit of %d", len(req.Items), s.cfg.Server.MaxBatch))
		return
	}
	// One classifier for the whole batch so a concurrent reload cannot split it.
	cl, err := s.db.Classifier()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := batchResponse{
		Fingerprint: cl.Fingerprint(),
		Results:     make([]batchResult, len(req.Items)),
	}
	for i, item := range req.Items {
		if item.Referer == "" {
			resp.Results[i].Error = "referer is required"
			continue
		}
		res, err := s.classify(cl, item.Referer, item.Current)
		if err != nil {
			resp.Results[i].Error = err.Error()
			continue
		}
		resp.Results[i].Result = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) classify(cl *referer.Classifier, refererURL, currentURL string) (referer.Result, error) {
	res, err := cl.Classify(refererURL, currentURL)
	if err != nil {
		metrics.ObserveClassificationError()
		return referer.Result{}, err
	}
	metrics.ObserveClassification(res.Medium, res.Known, res.Referer, res.HasSearchTerm())
	s.emit(refererURL, currentURL, res)
	return res, nil
}

func (s *Server) emit(refererURL, currentURL string, res referer.Result) {
	if s.emitter == nil {
		return
	}
	event, err := s.builder.Build(refererURL, currentURL, res)
	if err != nil {
		s.logger.Warn("Failed to build classification event", zap.Error(err))
		return
	}
	s.emitter.Emit(event)
}

func (s *Server) databaseInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.db.Info()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) reloadDatabase(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Load(r.Context()); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, refdb.ErrNoProvider):
			status = http.StatusConflict
		case errors.Is(err, referer.ErrMalformedSource):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	s.databaseInfo(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
