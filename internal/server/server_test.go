package server

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/addm/internal/config"
	"github.com/loopkit/addm/internal/ddm"
	"github.com/loopkit/addm/internal/history"
	"github.com/loopkit/addm/internal/regulator"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	cfg := config.Default()
	sim, err := ddm.New(cfg.DDM)
	require.NoError(t, err)
	reg := regulator.New(sim, regulator.WithRNGFactory(func() *rand.Rand { return ddm.NewRNG(42) }))
	return New(cfg, reg, opts...)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestDecideEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := postJSON(t, handler, "/api/v1/decide", map[string]any{
		"content":       strings.Repeat("solid content ", 40),
		"context":       "",
		"workflow_mode": "research_assembly",
		"iteration":     1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp decideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.ID)
	assert.Contains(t, []regulator.Decision{
		regulator.DecisionEnhance, regulator.DecisionResearch, regulator.DecisionComplete,
	}, resp.Decision)
	assert.GreaterOrEqual(t, resp.Confidence, 0.0)
	assert.LessOrEqual(t, resp.Confidence, 1.0)
	assert.GreaterOrEqual(t, resp.ReactionTimeMS, 0.0)
	assert.LessOrEqual(t, resp.ReactionTimeMS, 2000.0)
	assert.NotEmpty(t, resp.Reasoning)
	assert.Equal(t, resp.Confidence, resp.Metrics.QualityScore)
	assert.False(t, resp.ShouldSummarize)
	assert.False(t, resp.Timestamp.IsZero())

	// Strategy and next_prompt are present exactly for non-terminal
	// decisions.
	if resp.Decision == regulator.DecisionComplete {
		assert.Nil(t, resp.RefinementStrategy)
		assert.Nil(t, resp.NextPrompt)
		assert.Equal(t, 0.7, resp.Metrics.CompletenessScore)
	} else {
		require.NotNil(t, resp.RefinementStrategy)
		require.NotNil(t, resp.NextPrompt)
		assert.Equal(t, 0.5, resp.Metrics.CompletenessScore)
	}
}

func TestDecideValidationErrors(t *testing.T) {
	handler := newTestServer(t).Handler()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty content", map[string]any{"content": "", "workflow_mode": "news_analysis"}},
		{"blank content", map[string]any{"content": "  \n ", "workflow_mode": "news_analysis"}},
		{"bad mode", map[string]any{"content": "x", "workflow_mode": "poetry"}},
		{"negative iteration", map[string]any{"content": "x", "workflow_mode": "news_analysis", "iteration": -1}},
		{"threshold out of range", map[string]any{"content": "x", "workflow_mode": "news_analysis", "confidence_threshold": 2.0}},
		{"zero max iterations", map[string]any{"content": "x", "workflow_mode": "news_analysis", "max_iterations": 0}},
		{"budget above ceiling", map[string]any{"content": "x", "workflow_mode": "news_analysis", "max_iterations": 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handler, "/api/v1/decide", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "ValidationError", resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestDecideMalformedJSON(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decide", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideShouldSummarize(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := postJSON(t, handler, "/api/v1/decide", map[string]any{
		"content":       strings.Repeat("x", 20000),
		"context":       strings.Repeat("y", 20000),
		"workflow_mode": "news_analysis",
		"iteration":     1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp decideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ShouldSummarize)
}

func TestSimulateEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := postJSON(t, handler, "/api/v1/simulate", map[string]any{
		"drift_rates": []float64{5, 0, 0},
		"labels":      []string{"a", "b", "c"},
		"seed":        7,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var out ddm.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "a", out.Winner)
	assert.False(t, out.TimedOut)
}

func TestSimulateLengthMismatch(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := postJSON(t, handler, "/api/v1/simulate", map[string]any{
		"drift_rates": []float64{0.1, 0.2},
		"labels":      []string{"only"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Error)
}

func TestHealthAndStatus(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "addm-regulator", health["service"])

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "operational", status["status"])
	assert.EqualValues(t, 20, status["max_iterations"])
	assert.EqualValues(t, 0.85, status["default_confidence_threshold"])
}

func TestHistoryDisabled(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryRecordsDecisions(t *testing.T) {
	store, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	handler := newTestServer(t, WithHistory(store)).Handler()

	w := postJSON(t, handler, "/api/v1/decide", map[string]any{
		"content":       "short",
		"workflow_mode": "news_analysis",
		"iteration":     2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Decisions []history.Entry `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Decisions, 1)
	assert.Equal(t, "news_analysis", resp.Decisions[0].WorkflowMode)
	assert.Equal(t, 2, resp.Decisions[0].Iteration)
	assert.Equal(t, len("short"), resp.Decisions[0].ContentLength)
}

func TestRateLimiting(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	sim, err := ddm.New(cfg.DDM)
	require.NoError(t, err)
	handler := New(cfg, regulator.New(sim)).Handler()

	body := map[string]any{"content": "x", "workflow_mode": "news_analysis"}
	first := postJSON(t, handler, "/api/v1/decide", body)
	second := postJSON(t, handler, "/api/v1/decide", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRootBanner(t *testing.T) {
	handler := newTestServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ADDM Loop Regulator")
}
