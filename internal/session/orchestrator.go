// Package session sequences career analyses through the idle, loading, success and
// error states and keeps one state container per client session.
package session

import (
	"context"
	"sync"

	"survivalist/internal/ai"
	"survivalist/internal/errors"
	"survivalist/internal/types"
)

// Status is the phase an analysis session is in
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// GenericErrorMessage is the only failure text ever shown, whatever went wrong
const GenericErrorMessage = "System malfunction. Unable to connect to analysis engine. Please verify inputs and try again."

// State is a read-only snapshot of a session.
// Analysis is set only in StatusSuccess and Message only in StatusError.
type State struct {
	Status   Status                `json:"status"`
	Analysis *types.CareerAnalysis `json:"analysis,omitempty"`
	Message  string                `json:"message,omitempty"`
}

// OutcomeRecorder observes finished analyses. observability.ObservabilityManager satisfies it.
type OutcomeRecorder interface {
	RecordAnalysis(ctx context.Context, success bool, survivalScore float64)
}

// Orchestrator owns one session's state and drives analyses through the Analyzer.
// A newer Submit cancels the call still in flight and the older outcome is dropped.
type Orchestrator struct {
	analyzer ai.Analyzer
	logger   *errors.Logger
	recorder OutcomeRecorder

	mu          sync.Mutex
	state       State
	generation  uint64
	cancelCall  context.CancelFunc
	subscribers map[uint64]chan State
	nextSubID   uint64
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRecorder reports every settled analysis to r
func WithRecorder(r OutcomeRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator creates an orchestrator in the idle state
func NewOrchestrator(analyzer ai.Analyzer, logger *errors.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer:    analyzer,
		logger:      logger,
		state:       State{Status: StatusIdle},
		subscribers: make(map[uint64]chan State),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current snapshot
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs one analysis and blocks until it settles, returning the resulting state.
// A blank job title leaves the state untouched and never reaches the analyzer.
func (o *Orchestrator) Submit(ctx context.Context, req types.AnalysisRequest) State {
	if !req.HasJobTitle() {
		return o.State()
	}
	req = req.Normalized()

	callCtx, generation := o.begin(ctx)

	analysis, usage, err := o.analyzer.AnalyzeCareer(callCtx, req)
	o.logTokenUsage(usage)

	return o.settle(ctx, generation, analysis, err)
}

// Start runs Submit in the background. Progress is visible through State and Subscribe.
// It reports false when the request was ignored for a blank job title.
func (o *Orchestrator) Start(ctx context.Context, req types.AnalysisRequest) bool {
	if !req.HasJobTitle() {
		return false
	}

	// Enter loading before returning so callers observe it immediately.
	// The call outlives ctx's cancellation but keeps its values.
	req = req.Normalized()
	callCtx, generation := o.begin(context.WithoutCancel(ctx))

	go func() {
		analysis, usage, err := o.analyzer.AnalyzeCareer(callCtx, req)
		o.logTokenUsage(usage)
		o.settle(ctx, generation, analysis, err)
	}()
	return true
}

// begin moves to loading, supersedes any call in flight and returns the new call's context
func (o *Orchestrator) begin(parent context.Context) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(parent)

	o.mu.Lock()
	if o.cancelCall != nil {
		o.cancelCall()
	}
	o.generation++
	generation := o.generation
	o.cancelCall = cancel
	o.setStateLocked(State{Status: StatusLoading})
	o.mu.Unlock()

	return callCtx, generation
}

func (o *Orchestrator) logTokenUsage(usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	o.logger.Info("AI token usage",
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"total_tokens", usage.TotalTokens)
}

// settle applies an analyzer outcome unless a newer submission has superseded it
func (o *Orchestrator) settle(ctx context.Context, generation uint64, analysis types.CareerAnalysis, err error) State {
	o.mu.Lock()
	if generation != o.generation {
		current := o.state
		o.mu.Unlock()
		o.logger.Debug("Discarding superseded analysis outcome", "generation", generation)
		return current
	}

	o.cancelCall()
	o.cancelCall = nil

	var next State
	if err != nil {
		next = State{Status: StatusError, Message: GenericErrorMessage}
	} else {
		result := analysis
		next = State{Status: StatusSuccess, Analysis: &result}
	}
	o.setStateLocked(next)
	o.mu.Unlock()

	if err != nil {
		o.logger.LogError(err, "Career analysis failed")
	}
	if o.recorder != nil {
		o.recorder.RecordAnalysis(ctx, err == nil, analysis.SurvivalScore)
	}
	return next
}

// Cancel abandons the call in flight, if any. The abandoned call settles as an error.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelCall != nil {
		o.cancelCall()
	}
}

// Subscribe returns a channel receiving every state change and a function to stop.
// A slow subscriber loses its oldest pending states rather than blocking the
// orchestrator, so the last value it reads is always the current state.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	_, ch, stop := o.Watch()
	return ch, stop
}

// Watch is Subscribe that also returns the state current at subscription time,
// so nothing sent on the channel is older than it.
func (o *Orchestrator) Watch() (State, <-chan State, func()) {
	ch := make(chan State, 8)

	o.mu.Lock()
	id := o.nextSubID
	o.nextSubID++
	o.subscribers[id] = ch
	current := o.state
	o.mu.Unlock()

	var once sync.Once
	return current, ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subscribers, id)
			o.mu.Unlock()
			close(ch)
		})
	}
}

func (o *Orchestrator) setStateLocked(next State) {
	o.state = next
	for _, ch := range o.subscribers {
		publishLatest(ch, next)
	}
}

// publishLatest sends next, evicting the oldest pending state when ch is full.
// Sends only happen under o.mu, so after one eviction there is room.
func publishLatest(ch chan State, next State) {
	select {
	case ch <- next:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- next:
	default:
	}
}
