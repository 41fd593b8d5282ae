package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"authorship/internal/artifact"
	"authorship/internal/ledger"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/workflow"
)

// RunHistory is the read side of the run ledger.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]ledger.Run, error)
	GetRun(ctx context.Context, id string) (*ledger.Run, error)
	Evaluations(ctx context.Context, runID string) ([]ledger.EvaluationRow, error)
}

// PredictorSource builds a predictor for one architecture.
type PredictorSource interface {
	Predictor(arch model.Architecture) (*workflow.Predictor, error)
}

// Options wires the server's dependencies. History may be nil when the
// ledger is disabled.
type Options struct {
	Store      *artifact.Store
	History    RunHistory
	Predictors PredictorSource
	Logger     *slog.Logger
	MaxBody    int64
}

// Server holds handler dependencies.
type Server struct {
	store      *artifact.Store
	history    RunHistory
	predictors PredictorSource
	logger     *slog.Logger
	maxBody    int64

	mu    sync.Mutex
	cache map[model.Architecture]*workflow.Predictor
}

const defaultMaxBody = 4 << 20

// New constructs a server.
func New(opts Options) *Server {
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Server{
		store:      opts.Store,
		history:    opts.History,
		predictors: opts.Predictors,
		logger:     logging.NewComponentLogger(opts.Logger, "api"),
		maxBody:    maxBody,
		cache:      make(map[model.Architecture]*workflow.Predictor),
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), bodyLimit(s.maxBody))

	router.GET("/healthz", s.handleHealth)

	runs := router.Group("/runs")
	{
		runs.GET("", s.handleListRuns)
		runs.GET("/:id", s.handleGetRun)
	}

	artifacts := router.Group("/artifacts")
	{
		artifacts.GET("", s.handleListArtifacts)
		artifacts.GET("/stats", s.handleArtifactStats)
		artifacts.GET("/schemas/:kind", s.handleSchema)
	}

	router.POST("/predict", s.handlePredict)
	return router
}

// Serve listens on bind until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, bind string) error {
	srv := &http.Server{
		Addr:              bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening",
			logging.String(logging.FieldEventType, "server_start"),
			logging.String("bind", bind),
		)
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
		s.logger.Info("api shutting down", logging.String(logging.FieldEventType, "server_stop"))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// predictor returns the cached predictor for arch, building it on first use.
func (s *Server) predictor(arch model.Architecture) (*workflow.Predictor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.cache[arch]; ok {
		return p, nil
	}
	p, err := s.predictors.Predictor(arch)
	if err != nil {
		return nil, err
	}
	s.cache[arch] = p
	return p, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served",
			logging.String(logging.FieldEventType, "http_request"),
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		)
	}
}

func bodyLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
