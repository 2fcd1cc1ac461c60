package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/loopkit/addm/internal/ddm"
	"github.com/loopkit/addm/internal/history"
	"github.com/loopkit/addm/internal/regulator"
)

// decideRequest is the wire form of a decision request. Optional fields are
// pointers so omitted values pick up the configured defaults.
type decideRequest struct {
	Content             string   `json:"content"`
	Context             string   `json:"context"`
	WorkflowMode        string   `json:"workflow_mode"`
	Iteration           int      `json:"iteration"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	MaxIterations       *int     `json:"max_iterations"`
}

// qualityMetrics mirrors the original service's placeholder quality block:
// confidence stands in for quality, and the other two are constants keyed
// off whether the decision is terminal.
type qualityMetrics struct {
	QualityScore         float64 `json:"quality_score"`
	CompletenessScore    float64 `json:"completeness_score"`
	ImprovementPotential float64 `json:"improvement_potential"`
}

// decideResponse is the full decision envelope.
type decideResponse struct {
	ID                 string                        `json:"id"`
	Decision           regulator.Decision            `json:"decision"`
	Confidence         float64                       `json:"confidence"`
	ReactionTimeMS     float64                       `json:"reaction_time"`
	Reasoning          string                        `json:"reasoning"`
	Metrics            qualityMetrics                `json:"metrics"`
	RefinementStrategy *regulator.RefinementStrategy `json:"refinement_strategy"`
	NextPrompt         *string                       `json:"next_prompt"`
	ShouldSummarize    bool                          `json:"should_summarize"`
	Timestamp          time.Time                     `json:"timestamp"`
}

type simulateRequest struct {
	DriftRates []float64 `json:"drift_rates"`
	Labels     []string  `json:"labels"`
	Seed       *uint64   `json:"seed"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error())
		return
	}

	confidenceThreshold := s.cfg.ConfidenceThreshold
	if req.ConfidenceThreshold != nil {
		confidenceThreshold = *req.ConfidenceThreshold
	}
	maxIterations := s.cfg.MaxIterations
	if req.MaxIterations != nil {
		maxIterations = *req.MaxIterations
	}
	if maxIterations > s.cfg.MaxIterations {
		writeError(w, http.StatusBadRequest, "ValidationError",
			"max_iterations exceeds the service ceiling of "+strconv.Itoa(s.cfg.MaxIterations))
		return
	}

	outcome, err := s.reg.Decide(regulator.DecisionRequest{
		Content:             req.Content,
		Context:             req.Context,
		WorkflowMode:        regulator.WorkflowMode(req.WorkflowMode),
		Iteration:           req.Iteration,
		ConfidenceThreshold: confidenceThreshold,
		MaxIterations:       maxIterations,
	})
	if err != nil {
		writeRegulatorError(w, err)
		return
	}

	id := uuid.New().String()
	s.recordDecision(r, id, req, outcome)

	resp := decideResponse{
		ID:             id,
		Decision:       outcome.Decision,
		Confidence:     outcome.Confidence,
		ReactionTimeMS: outcome.ReactionTimeMS,
		Reasoning:      outcome.Reasoning,
		Metrics: qualityMetrics{
			QualityScore:         outcome.Confidence,
			CompletenessScore:    completenessFor(outcome.Decision),
			ImprovementPotential: improvementFor(outcome.Decision),
		},
		RefinementStrategy: outcome.RefinementStrategy,
		NextPrompt:         optionalString(outcome.NextPrompt),
		ShouldSummarize:    len(req.Content)+len(req.Context) > s.cfg.SummarizationThreshold,
		Timestamp:          time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error())
		return
	}

	var out ddm.Outcome
	var err error
	if req.Seed != nil {
		out, err = s.reg.SimulateSeeded(ddm.NewRNG(*req.Seed), req.DriftRates, req.Labels)
	} else {
		out, err = s.reg.Simulate(req.DriftRates, req.Labels)
	}
	if err != nil {
		writeRegulatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "HistoryDisabled", "decision history is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "ValidationError", "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to read decision history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": entries})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":                      serviceName,
		"status":                       "operational",
		"version":                      Version,
		"max_iterations":               s.cfg.MaxIterations,
		"default_confidence_threshold": s.cfg.ConfidenceThreshold,
		"uptime_seconds":               int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ADDM Loop Regulator Service",
		"health":  "/health",
		"status":  "/api/v1/status",
	})
}

// recordDecision appends to the audit log when configured. Failures are
// logged and swallowed; history never affects the decision path.
func (s *Server) recordDecision(r *http.Request, id string, req decideRequest, outcome *regulator.DecisionOutcome) {
	if s.store == nil {
		return
	}
	err := s.store.Record(r.Context(), history.Entry{
		ID:             id,
		Decision:       string(outcome.Decision),
		Confidence:     outcome.Confidence,
		ReactionTimeMS: outcome.ReactionTimeMS,
		WorkflowMode:   req.WorkflowMode,
		Iteration:      req.Iteration,
		ContentLength:  len(req.Content),
		TimedOut:       outcome.TimedOut,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to record decision", "error", err, "id", id)
	}
}

func completenessFor(d regulator.Decision) float64 {
	if d == regulator.DecisionComplete {
		return 0.7
	}
	return 0.5
}

func improvementFor(d regulator.Decision) float64 {
	if d == regulator.DecisionComplete {
		return 0.3
	}
	return 0.7
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeRegulatorError(w http.ResponseWriter, err error) {
	var verr *regulator.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "ValidationError", verr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "InternalError", "failed to make decision")
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
