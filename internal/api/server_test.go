package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authorship/internal/api"
	"authorship/internal/ledger"
	"authorship/internal/logging"
	"authorship/internal/testsupport"
	"authorship/internal/workflow"
)

type harness struct {
	router *gin.Engine
	runID  string
}

func newHarness(t *testing.T, train bool, withLedger bool) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	testsupport.WriteCorpusCSV(t, testsupport.CorpusPath(cfg), testsupport.StyleDocuments(3, 10))
	store := testsupport.MustOpenStore(t, cfg)

	var opts []workflow.Option
	var history api.RunHistory
	if withLedger {
		db, err := ledger.Open(cfg.Paths.LedgerPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		opts = append(opts, workflow.WithLedger(db))
		history = db
	}
	mgr := workflow.NewManager(cfg, store, logging.NewNop(), opts...)

	h := harness{}
	if train {
		outcome, err := mgr.Run(context.Background())
		require.NoError(t, err)
		h.runID = outcome.Report.RunID
	}
	h.router = api.New(api.Options{
		Store:      store,
		History:    history,
		Predictors: mgr,
		Logger:     logging.NewNop(),
	}).Router()
	return h
}

func (h harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false, false)
	w := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRunsWithoutLedger(t *testing.T) {
	h := newHarness(t, false, false)
	w := h.do(t, http.MethodGet, "/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, api.ErrorCodeLedgerDisabled, decode[api.APIError](t, w).Code)
}

func TestRunHistory(t *testing.T) {
	h := newHarness(t, true, true)

	w := h.do(t, http.MethodGet, "/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Runs []api.RunView `json:"runs"`
	}](t, w)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, h.runID, list.Runs[0].ID)
	assert.Equal(t, "succeeded", list.Runs[0].Status)

	w = h.do(t, http.MethodGet, "/runs/"+h.runID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decode[api.RunView](t, w)
	assert.Len(t, run.Stages, 5)
	assert.Len(t, run.Evaluations, 2)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown run", "/runs/missing", http.StatusNotFound},
		{"bad limit", "/runs?limit=zero", http.StatusBadRequest},
		{"negative limit", "/runs?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, h.do(t, http.MethodGet, tt.path, nil).Code)
		})
	}
}

func TestArtifacts(t *testing.T) {
	h := newHarness(t, true, false)

	w := h.do(t, http.MethodGet, "/artifacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[struct {
		Artifacts []map[string]any `json:"artifacts"`
	}](t, w)
	assert.Len(t, all.Artifacts, 8)

	w = h.do(t, http.MethodGet, "/artifacts?kind=trained-model-bundle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	models := decode[struct {
		Artifacts []map[string]any `json:"artifacts"`
	}](t, w)
	require.Len(t, models.Artifacts, 1)
	assert.Equal(t, "model/baseline", models.Artifacts[0]["name"])

	w = h.do(t, http.MethodGet, "/artifacts/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":8`)
}

func TestSchemas(t *testing.T) {
	h := newHarness(t, false, false)

	w := h.do(t, http.MethodGet, "/artifacts/schemas/split-index-list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"proportions"`)

	w = h.do(t, http.MethodGet, "/artifacts/schemas/bogus", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredict(t *testing.T) {
	h := newHarness(t, true, false)

	w := h.do(t, http.MethodPost, "/predict", api.PredictRequest{
		Model: "baseline",
		Texts: []string{"parlour0 the parlour1 and parlour2 of parlour3"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[api.PredictResponse](t, w)
	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, "Author B", resp.Predictions[0].Author)
	assert.Len(t, resp.Predictions[0].Scores, 3)

	tests := []struct {
		name   string
		body   any
		status int
		code   api.ErrorCode
	}{
		{"invalid json", "{not json", http.StatusBadRequest, api.ErrorCodeInvalidJSON},
		{"no texts", api.PredictRequest{Model: "baseline"}, http.StatusBadRequest, api.ErrorCodeInvalidRequest},
		{"unknown model", api.PredictRequest{Model: "transformer", Texts: []string{"x"}}, http.StatusBadRequest, api.ErrorCodeInvalidRequest},
		{"disabled model", api.PredictRequest{Model: "rnn", Texts: []string{"x"}}, http.StatusBadRequest, api.ErrorCodeConfiguration},
		{"empty text", api.PredictRequest{Texts: []string{"  "}}, http.StatusUnprocessableEntity, api.ErrorCodePredictFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, "/predict", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[api.APIError](t, w).Code)
		})
	}

	w = h.do(t, http.MethodPost, "/predict", api.PredictRequest{Texts: []string{"the whale", "  "}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	apiErr := decode[api.APIError](t, w)
	assert.Contains(t, apiErr.Message, `"input-1"`)
	assert.NotEmpty(t, apiErr.Hint)
}

func TestPredictBeforeTraining(t *testing.T) {
	h := newHarness(t, false, false)

	w := h.do(t, http.MethodPost, "/predict", api.PredictRequest{Texts: []string{"whale0 the whale1"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	apiErr := decode[api.APIError](t, w)
	assert.Equal(t, api.ErrorCodeModelNotReady, apiErr.Code)
	assert.NotEmpty(t, apiErr.Hint)
}
