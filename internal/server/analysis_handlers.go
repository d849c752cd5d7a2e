package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"survivalist/internal/common"
	survivalistErrors "survivalist/internal/errors"
	"survivalist/internal/formatters"
	"survivalist/internal/session"
	"survivalist/internal/types"
)

// Hint describes one metric the report will score, shown before any analysis ran
type Hint struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var idleHints = []Hint{
	{Title: "Automation Risk", Description: "How exposed the role is to AI and robotics."},
	{Title: "Burnout Index", Description: "How likely the work is to wear people out."},
	{Title: "Market Longevity", Description: "How long demand for the role is likely to last."},
}

// ScoreSummary puts verbal labels on the numeric scores
type ScoreSummary struct {
	SurvivalBand    string `json:"survivalBand"`
	AutomationLevel string `json:"automationLevel"`
	BurnoutLevel    string `json:"burnoutLevel"`
}

// AnalysisView is the JSON rendering of a session's state
type AnalysisView struct {
	SessionID string                `json:"sessionId"`
	Status    session.Status        `json:"status"`
	Analysis  *types.CareerAnalysis `json:"analysis,omitempty"`
	Summary   *ScoreSummary         `json:"summary,omitempty"`
	Message   string                `json:"message,omitempty"`
	Hints     []Hint                `json:"hints,omitempty"`
}

func newAnalysisView(id string, state session.State) AnalysisView {
	view := AnalysisView{
		SessionID: id,
		Status:    state.Status,
		Analysis:  state.Analysis,
		Message:   state.Message,
	}
	switch state.Status {
	case session.StatusIdle:
		view.Hints = idleHints
	case session.StatusSuccess:
		if a := state.Analysis; a != nil {
			view.Summary = &ScoreSummary{
				SurvivalBand:    formatters.SurvivalBand(a.SurvivalScore),
				AutomationLevel: formatters.RiskLevel(a.AutomationExposure.Score),
				BurnoutLevel:    formatters.RiskLevel(a.BurnoutProbability.Score),
			}
		}
	}
	return view
}

// submitAnalysisHandler runs an analysis for the caller's session, creating the session if needed.
// With ?async=true it returns 202 as soon as the session is loading.
func (s *Server) submitAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("survivalist.api").Start(r.Context(), "api.analysis.submit")
	defer span.End()

	var req types.AnalysisRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}
	if err := common.ValidateRequest(req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "INVALID_REQUEST", validationMessage(err), http.StatusBadRequest)
		return
	}

	sess, created := s.Sessions.GetOrCreate(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sess.ID)
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Bool("session.created", created),
		attribute.Int("request.job_title_length", len(req.JobTitle)),
	)

	if r.URL.Query().Get("async") == "true" {
		started := sess.Orchestrator.Start(ctx, req)
		status := http.StatusOK
		if started {
			status = http.StatusAccepted
		}
		s.writeJSON(w, status, newAnalysisView(sess.ID, sess.Orchestrator.State()))
		return
	}

	state := sess.Orchestrator.Submit(ctx, req)
	span.SetAttributes(attribute.String("analysis.status", string(state.Status)))

	statusCode := http.StatusOK
	if state.Status == session.StatusError {
		statusCode = http.StatusBadGateway
	}
	s.writeJSON(w, statusCode, newAnalysisView(sess.ID, state))
}

// getAnalysisHandler returns the current state of the caller's session
func (s *Server) getAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newAnalysisView(sess.ID, sess.Orchestrator.State()))
}

// deleteAnalysisHandler drops the caller's session
func (s *Server) deleteAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeErrorResponse(w, "MISSING_SESSION", SessionHeader+" header is required", http.StatusBadRequest)
		return
	}
	if !s.Sessions.Delete(id) {
		writeErrorResponse(w, "SESSION_NOT_FOUND", "Unknown or expired session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analysisEventsHandler streams state changes of the caller's session as Server-Sent Events.
// The current state is sent first; the stream ends when the client goes away
// or the server shuts down.
func (s *Server) analysisEventsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	current, updates, unsubscribe := sess.Orchestrator.Watch()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(SessionHeader, sess.ID)
	w.WriteHeader(http.StatusOK)

	if err := s.writeEvent(w, rc, sess.ID, current); err != nil {
		s.Logger.Warn("Event stream unavailable", "session_id", sess.ID, "error", err)
		return
	}

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeEvent(w, rc, sess.ID, state); err != nil {
				s.Logger.Debug("Event stream closed", "session_id", sess.ID, "error", err)
				return
			}
		case <-r.Context().Done():
			return
		case <-s.streamsDone:
			return
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, rc *http.ResponseController, id string, state session.State) error {
	data, err := json.Marshal(newAnalysisView(id, state))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

// lookupSession resolves the session named by the request header, writing the error response when absent
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeErrorResponse(w, "MISSING_SESSION", SessionHeader+" header is required", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.Sessions.Get(id)
	if !ok {
		writeErrorResponse(w, "SESSION_NOT_FOUND", "Unknown or expired session", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func validationMessage(err error) string {
	if appErr, ok := survivalistErrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
