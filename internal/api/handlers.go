package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"authorship/internal/artifact"
	"authorship/internal/artifactschema"
	"authorship/internal/ledger"
	"authorship/internal/model"
	"authorship/internal/stage"
	"authorship/internal/workflow"
)

// RunView is the JSON form of a ledger run.
type RunView struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty"`
	Seed          int64            `json:"seed"`
	Corpus        string           `json:"corpus"`
	EnabledStages []string         `json:"enabled_stages"`
	Models        []string         `json:"models"`
	Error         string           `json:"error,omitempty"`
	Stages        []stage.Result   `json:"stages,omitempty"`
	Evaluations   []EvaluationView `json:"evaluations,omitempty"`
}

// EvaluationView is one headline metrics row.
type EvaluationView struct {
	Architecture string  `json:"architecture"`
	Partition    string  `json:"partition"`
	Samples      int     `json:"samples"`
	Accuracy     float64 `json:"accuracy"`
	MacroF1      float64 `json:"macro_f1"`
	LogLoss      float64 `json:"log_loss"`
	Model        string  `json:"model_fingerprint"`
}

// PredictRequest asks for the authors of one or more texts.
type PredictRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// PredictResponse carries one prediction per input text.
type PredictResponse struct {
	Model       string                `json:"model"`
	Predictions []workflow.Prediction `json:"predictions"`
}

func toRunView(run ledger.Run) RunView {
	return RunView{
		ID:            run.ID,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Seed:          run.Seed,
		Corpus:        run.Corpus,
		EnabledStages: run.EnabledStages,
		Models:        run.Models,
		Error:         run.ErrorMessage,
		Stages:        run.Stages,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"artifacts": s.store.Root(),
		"ledger":    s.history != nil,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.history == nil {
		SendError(c, http.StatusServiceUnavailable, ErrorCodeLedgerDisabled, "run ledger is not configured")
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, toRunView(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": views})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.history == nil {
		SendError(c, http.StatusServiceUnavailable, ErrorCodeLedgerDisabled, "run ledger is not configured")
		return
	}
	id := c.Param("id")
	run, err := s.history.GetRun(c.Request.Context(), id)
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	if run == nil {
		SendError(c, http.StatusNotFound, ErrorCodeRunNotFound, "run "+id+" not found")
		return
	}
	rows, err := s.history.Evaluations(c.Request.Context(), id)
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	view := toRunView(*run)
	for _, row := range rows {
		view.Evaluations = append(view.Evaluations, EvaluationView(row))
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	entries, err := s.store.List()
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	if kind := c.Query("kind"); kind != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if prefix := c.Query("prefix"); prefix != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.HasPrefix(e.Name, prefix) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []artifact.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": entries})
}

func (s *Server) handleArtifactStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleSchema(c *gin.Context) {
	data, err := artifactschema.Marshal(artifact.Kind(c.Param("kind")))
	if err != nil {
		SendError(c, http.StatusNotFound, ErrorCodeUnknownKind, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/schema+json", json.RawMessage(data))
}

func (s *Server) handlePredict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "texts must not be empty")
		return
	}
	if req.Model == "" {
		req.Model = string(model.Baseline)
	}
	arch, err := model.ParseArchitecture(req.Model)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}
	p, err := s.predictor(arch)
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	preds, err := p.Predict(req.Texts)
	if err != nil {
		sendPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, PredictResponse{Model: string(arch), Predictions: preds})
}
