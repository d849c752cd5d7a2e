package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivalist/internal/ai"
	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/session"
	"survivalist/internal/types"
)

var nurse = types.CareerAnalysis{
	CareerOverview:           "Durable demand.",
	ShortTermUpside:          "Shortages everywhere.",
	LongTermRisks:            []string{"Staffing ratios", "Burnout", "Budget cuts"},
	AutomationExposure:       types.ScoreDetail{Score: 15, Details: "Hands-on care."},
	BurnoutProbability:       types.ScoreDetail{Score: 80, Details: "Long shifts."},
	SurvivalScore:            8.4,
	SurvivalScoreExplanation: "Resilient.",
}

type stubAnalyzer struct {
	mu      sync.Mutex
	result  types.CareerAnalysis
	err     error
	release chan struct{}
	calls   int
	model   *ai.ModelInfo
}

func (s *stubAnalyzer) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *ai.TokenUsage, error) {
	s.mu.Lock()
	s.calls++
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return types.CareerAnalysis{}, nil, ctx.Err()
		}
	}
	if s.err != nil {
		return types.CareerAnalysis{}, nil, s.err
	}
	return s.result, nil, nil
}

func (s *stubAnalyzer) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model
	}
	return &ai.ModelInfo{Name: "stub", Provider: "test", Available: true}
}

func (s *stubAnalyzer) Close() error { return nil }

func (s *stubAnalyzer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestServer(t *testing.T, analyzer ai.Analyzer, mutate func(*ServerConfig)) (*Server, *httptest.Server) {
	t.Helper()
	appCfg := &config.Config{}
	cfg := ServerConfig{Version: "test", MaxRequestSize: 4096, SessionTTL: time.Hour}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := NewServer(appCfg, cfg, analyzer, nil, errors.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestSubmitAnalysisSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{result: nurse}
	_, ts := newTestServer(t, analyzer, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis",
		`{"jobTitle": "Nurse", "industry": "Healthcare"}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get(SessionHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, body["sessionId"])
	assert.Equal(t, "success", body["status"])

	summary := body["summary"].(map[string]any)
	assert.Equal(t, "RESILIENT", summary["survivalBand"])
	assert.Equal(t, "LOW", summary["automationLevel"])
	assert.Equal(t, "HIGH", summary["burnoutLevel"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/analysis", "", map[string]string{SessionHeader: id})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 8.4, body["analysis"].(map[string]any)["survivalScore"])
}

func TestSubmitAnalysisFailureIsGeneric(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.NewTransportError(errors.ErrCodeAIServiceFailed, "upstream 500", nil)}
	_, ts := newTestServer(t, analyzer, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Cashier"}`, nil)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, session.GenericErrorMessage, body["message"])
	assert.NotContains(t, body, "analysis")
}

func TestSubmitBlankTitleKeepsState(t *testing.T) {
	analyzer := &stubAnalyzer{result: nurse}
	_, ts := newTestServer(t, analyzer, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "   "}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "idle", body["status"])
	assert.Len(t, body["hints"], 3)
	assert.Zero(t, analyzer.callCount())
}

func TestSubmitRejectsBadInput(t *testing.T) {
	analyzer := &stubAnalyzer{result: nurse}
	_, ts := newTestServer(t, analyzer, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "not json", body: `jobTitle=x`, status: http.StatusBadRequest},
		{name: "too long", body: `{"jobTitle": "` + strings.Repeat("a", 201) + `"}`, status: http.StatusBadRequest},
		{name: "too large", body: `{"jobTitle": "` + strings.Repeat("a", 5000) + `"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "INVALID_REQUEST", body["error"])
		})
	}
	assert.Zero(t, analyzer.callCount())
}

func TestSessionLookupAndDelete(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{result: nurse}, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/analysis", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_SESSION", body["error"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/analysis", "", map[string]string{SessionHeader: "not-a-uuid"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
	id := resp.Header.Get(SessionHeader)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/analysis", "", map[string]string{SessionHeader: id})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/analysis", "", map[string]string{SessionHeader: id})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{result: nurse}, nil)

	first, _ := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
	second, _ := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Welder"}`, nil)
	assert.NotEqual(t, first.Header.Get(SessionHeader), second.Header.Get(SessionHeader))

	again, _ := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`,
		map[string]string{SessionHeader: first.Header.Get(SessionHeader)})
	assert.Equal(t, first.Header.Get(SessionHeader), again.Header.Get(SessionHeader))
}

func TestAsyncSubmitAndEvents(t *testing.T) {
	analyzer := &stubAnalyzer{result: nurse, release: make(chan struct{})}
	_, ts := newTestServer(t, analyzer, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis?async=true", `{"jobTitle": "Nurse"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "loading", body["status"])
	id := resp.Header.Get(SessionHeader)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/analysis/events", nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, id)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	events := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(stream.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				events <- data
			}
		}
		close(events)
	}()

	statusOf := func(data string) string {
		var view AnalysisView
		require.NoError(t, json.Unmarshal([]byte(data), &view))
		return string(view.Status)
	}

	select {
	case data := <-events:
		assert.Equal(t, "loading", statusOf(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	close(analyzer.release)

	select {
	case data := <-events:
		assert.Equal(t, "success", statusOf(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no success event")
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{result: nurse}, func(c *ServerConfig) {
		c.APIKeys = []string{"secret-key-123"}
	})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_API_KEY", body["error"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`,
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_API_KEY", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`,
		map[string]string{"Authorization": "Bearer secret-key-123"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{result: nurse}, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["error"])
}

func TestHealthAndStats(t *testing.T) {
	analyzer := &stubAnalyzer{result: nurse}
	_, ts := newTestServer(t, analyzer, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "stub", body["ai_model"].(map[string]any)["name"])

	doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/stats", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	sessions := body["sessions"].(map[string]any)
	assert.Equal(t, float64(1), sessions["active"])
	assert.Equal(t, float64(1), sessions["by_status"].(map[string]any)["success"])

	analyzer.mu.Lock()
	analyzer.model = &ai.ModelInfo{Name: "stub", Available: false, Error: "API key is missing"}
	analyzer.mu.Unlock()
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{result: nurse}, nil)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/analysis", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGetRateLimitKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.9")

	assert.Equal(t, "ip:203.0.113.9", getRateLimitKey(r, true, true))
	r.Header.Set("X-API-Key", "k")
	assert.Equal(t, "api:k", getRateLimitKey(r, true, true))
	assert.Equal(t, "", getRateLimitKey(r, false, false))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijk"))
}

func TestShutdownEndsEventStreams(t *testing.T) {
	srv := NewServer(&config.Config{}, ServerConfig{Version: "test", MaxRequestSize: 4096, SessionTTL: time.Hour},
		&stubAnalyzer{result: nurse}, nil, errors.Discard())
	httpServer := srv.setupHTTPServer()

	ts := httptest.NewUnstartedServer(httpServer.Handler)
	ts.Config = httpServer
	ts.Start()
	t.Cleanup(ts.Close)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/analysis", `{"jobTitle": "Nurse"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/analysis/events", nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, resp.Header.Get(SessionHeader))
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()

	ended := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stream.Body)
		for scanner.Scan() {
		}
		close(ended)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, httpServer.Shutdown(ctx), "shutdown must not wait out its deadline")

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream still open after shutdown")
	}
}
