package session

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivalist/internal/ai"
	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/types"
)

var truckDriver = types.CareerAnalysis{
	CareerOverview:           "Well paid today, automated tomorrow.",
	ShortTermUpside:          "Driver shortage keeps pay high.",
	LongTermRisks:            []string{"Autonomous trucks", "Platooning", "Consolidation"},
	AutomationExposure:       types.ScoreDetail{Score: 82, Details: "Highway miles are automatable."},
	BurnoutProbability:       types.ScoreDetail{Score: 68, Details: "Long stretches away from home."},
	SurvivalScore:            2.3,
	SurvivalScoreExplanation: "Plan an exit.",
}

var truckRequest = types.AnalysisRequest{JobTitle: "Truck Driver", Industry: "Logistics", Location: "Texas", YearsExperience: "5"}

// fakeAnalyzer records calls and answers with fn
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []types.AnalysisRequest
	fn    func(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, error)
}

func (f *fakeAnalyzer) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *ai.TokenUsage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	analysis, err := f.fn(ctx, req)
	return analysis, nil, err
}

func (f *fakeAnalyzer) GetModelInfo(context.Context) *ai.ModelInfo { return &ai.ModelInfo{} }
func (f *fakeAnalyzer) Close() error                                { return nil }

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func succeedWith(analysis types.CareerAnalysis) *fakeAnalyzer {
	return &fakeAnalyzer{fn: func(context.Context, types.AnalysisRequest) (types.CareerAnalysis, error) {
		return analysis, nil
	}}
}

func failWith(err error) *fakeAnalyzer {
	return &fakeAnalyzer{fn: func(context.Context, types.AnalysisRequest) (types.CareerAnalysis, error) {
		return types.CareerAnalysis{}, err
	}}
}

func TestInitialStateIsIdle(t *testing.T) {
	o := NewOrchestrator(succeedWith(truckDriver), errors.Discard())
	assert.Equal(t, State{Status: StatusIdle}, o.State())
}

func TestSubmitTruckDriverSucceeds(t *testing.T) {
	analyzer := succeedWith(truckDriver)
	o := NewOrchestrator(analyzer, errors.Discard())

	state := o.Submit(context.Background(), truckRequest)

	require.Equal(t, StatusSuccess, state.Status)
	require.NotNil(t, state.Analysis)
	assert.Equal(t, 2.3, state.Analysis.SurvivalScore)
	assert.Equal(t, float64(82), state.Analysis.AutomationExposure.Score)
	assert.Empty(t, state.Message)
	assert.Equal(t, state, o.State())
	assert.Equal(t, 1, analyzer.callCount())
}

func TestSubmitBlankTitleIsNoop(t *testing.T) {
	analyzer := succeedWith(truckDriver)
	o := NewOrchestrator(analyzer, errors.Discard())

	for _, title := range []string{"", "   ", "\t\n"} {
		state := o.Submit(context.Background(), types.AnalysisRequest{JobTitle: title, Industry: "Tech"})
		assert.Equal(t, StatusIdle, state.Status)
	}
	assert.Equal(t, 0, analyzer.callCount())

	// A settled result is left alone too
	o.Submit(context.Background(), truckRequest)
	before := o.State()
	after := o.Submit(context.Background(), types.AnalysisRequest{JobTitle: " "})
	assert.Equal(t, before, after)
	assert.Equal(t, 1, analyzer.callCount())
	assert.False(t, o.Start(context.Background(), types.AnalysisRequest{}))
}

func TestSubmitPassesTrimmedRequest(t *testing.T) {
	analyzer := succeedWith(truckDriver)
	o := NewOrchestrator(analyzer, errors.Discard())

	o.Submit(context.Background(), types.AnalysisRequest{JobTitle: "  Nurse  ", Location: " Oslo "})

	require.Len(t, analyzer.calls, 1)
	assert.Equal(t, "Nurse", analyzer.calls[0].JobTitle)
	assert.Equal(t, "Oslo", analyzer.calls[0].Location)
	assert.Empty(t, analyzer.calls[0].Industry)
}

func TestSubmitFailuresCollapseToGenericMessage(t *testing.T) {
	syntaxErr := json.Unmarshal([]byte("{"), &struct{}{})

	tests := []struct {
		name string
		err  error
	}{
		{name: "configuration", err: errors.NewMissingCredentialError("gemini")},
		{name: "transport", err: errors.NewTransportError(errors.ErrCodeAIServiceFailed, "dial failed", stderrors.New("connection refused"))},
		{name: "empty response", err: errors.NewEmptyResponseError()},
		{name: "malformed response", err: errors.NewMalformedResponseError(syntaxErr)},
		{name: "untyped", err: stderrors.New("something odd")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			o := NewOrchestrator(failWith(tt.err), errors.NewLoggerWithWriter(&logs, slog.LevelDebug))

			state := o.Submit(context.Background(), truckRequest)

			assert.Equal(t, StatusError, state.Status)
			assert.Equal(t, GenericErrorMessage, state.Message)
			assert.Nil(t, state.Analysis)
			assert.Contains(t, logs.String(), "Career analysis failed", "underlying error is logged")
		})
	}
}

func TestMissingCredentialNeverDials(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{AI: config.AIConfig{
		Provider: config.ProviderGemini,
		Model:    config.DefaultGeminiModel,
		BaseURL:  upstream.URL,
	}}
	provider, err := ai.NewGeminiProvider(cfg, errors.Discard())
	require.NoError(t, err)

	o := NewOrchestrator(provider, errors.Discard())
	state := o.Submit(context.Background(), truckRequest)

	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, GenericErrorMessage, state.Message)
	assert.Equal(t, int32(0), hits.Load(), "no request may leave without a credential")
}

func TestStateMachineIsReenterable(t *testing.T) {
	fail := true
	analyzer := &fakeAnalyzer{fn: func(context.Context, types.AnalysisRequest) (types.CareerAnalysis, error) {
		if fail {
			return types.CareerAnalysis{}, errors.NewEmptyResponseError()
		}
		return truckDriver, nil
	}}
	o := NewOrchestrator(analyzer, errors.Discard())

	assert.Equal(t, StatusError, o.Submit(context.Background(), truckRequest).Status)

	fail = false
	state := o.Submit(context.Background(), truckRequest)
	assert.Equal(t, StatusSuccess, state.Status)
	assert.Empty(t, state.Message, "error is cleared")

	fail = true
	state = o.Submit(context.Background(), truckRequest)
	assert.Equal(t, StatusError, state.Status)
	assert.Nil(t, state.Analysis, "data is cleared")
}

func TestSubscribeSeesLoadingThenExactlyOneOutcome(t *testing.T) {
	o := NewOrchestrator(succeedWith(truckDriver), errors.Discard())
	updates, stop := o.Subscribe()
	defer stop()

	o.Submit(context.Background(), truckRequest)

	var seen []Status
	for len(seen) < 2 {
		select {
		case s := <-updates:
			seen = append(seen, s.Status)
		case <-time.After(time.Second):
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, []Status{StatusLoading, StatusSuccess}, seen)

	select {
	case s := <-updates:
		t.Fatalf("unexpected extra update %v", s.Status)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	o := NewOrchestrator(succeedWith(truckDriver), errors.Discard())
	updates, stop := o.Subscribe()
	stop()
	stop()

	_, open := <-updates
	assert.False(t, open)

	// Publishing after unsubscribe must not panic
	o.Submit(context.Background(), truckRequest)
}

func TestNewerSubmissionSupersedesInFlightCall(t *testing.T) {
	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})

	var calls int
	var mu sync.Mutex
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			close(firstStarted)
			<-ctx.Done()
			close(firstCancelled)
			return types.CareerAnalysis{}, ctx.Err()
		}
		return truckDriver, nil
	}}
	o := NewOrchestrator(analyzer, errors.Discard())

	require.True(t, o.Start(context.Background(), types.AnalysisRequest{JobTitle: "Barista"}))
	assert.Equal(t, StatusLoading, o.State().Status)
	<-firstStarted

	state := o.Submit(context.Background(), truckRequest)
	require.Equal(t, StatusSuccess, state.Status)

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("first call was not cancelled")
	}

	// Give the superseded goroutine time to try to settle
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusSuccess, o.State().Status, "stale failure must be discarded")
	assert.Equal(t, 2.3, o.State().Analysis.SurvivalScore)
}

func TestStartSettlesInBackground(t *testing.T) {
	o := NewOrchestrator(succeedWith(truckDriver), errors.Discard())
	updates, stop := o.Subscribe()
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, o.Start(ctx, truckRequest))
	cancel() // the caller going away does not abort the analysis

	deadline := time.After(time.Second)
	for {
		select {
		case s := <-updates:
			if s.Status == StatusSuccess {
				return
			}
		case <-deadline:
			t.Fatalf("analysis did not settle, state %v", o.State().Status)
		}
	}
}

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []bool
}

func (r *recordingRecorder) RecordAnalysis(_ context.Context, success bool, _ float64) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, success)
	r.mu.Unlock()
}

func TestRecorderSeesOutcomes(t *testing.T) {
	recorder := &recordingRecorder{}

	NewOrchestrator(succeedWith(truckDriver), errors.Discard(), WithRecorder(recorder)).
		Submit(context.Background(), truckRequest)
	NewOrchestrator(failWith(errors.NewEmptyResponseError()), errors.Discard(), WithRecorder(recorder)).
		Submit(context.Background(), truckRequest)

	assert.Equal(t, []bool{true, false}, recorder.outcomes)
}

func TestWatchReturnsCurrentState(t *testing.T) {
	o := NewOrchestrator(succeedWith(truckDriver), errors.Discard())
	o.Submit(context.Background(), truckRequest)

	current, updates, stop := o.Watch()
	assert.Equal(t, StatusSuccess, current.Status)
	assert.Empty(t, updates)

	stop()
	stop()
	_, open := <-updates
	assert.False(t, open)
}

func TestIdleSubscriberEndsOnCurrentState(t *testing.T) {
	var calls atomic.Int32
	analyzer := &fakeAnalyzer{fn: func(context.Context, types.AnalysisRequest) (types.CareerAnalysis, error) {
		n := calls.Add(1)
		if n == 5 {
			return types.CareerAnalysis{}, errors.NewEmptyResponseError()
		}
		analysis := truckDriver
		analysis.SurvivalScore = float64(n)
		return analysis, nil
	}}
	o := NewOrchestrator(analyzer, errors.Discard())
	updates, stop := o.Subscribe()
	defer stop()

	// Ten transitions overflow the buffer while nobody reads
	for range 5 {
		o.Submit(context.Background(), truckRequest)
	}

	var last State
	received := 0
	for drained := false; !drained; {
		select {
		case s := <-updates:
			last = s
			received++
		default:
			drained = true
		}
	}

	require.NotZero(t, received)
	assert.Equal(t, StatusError, o.State().Status)
	assert.Equal(t, o.State(), last, "the last delivered state must be the current one")
}
