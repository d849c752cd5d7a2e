package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindPredicates(t *testing.T) {
	parseErr := &json.SyntaxError{Offset: 3}

	tests := []struct {
		name      string
		err       error
		config    bool
		transport bool
		empty     bool
		malformed bool
	}{
		{name: "missing credential", err: NewMissingCredentialError("gemini"), config: true},
		{name: "transport", err: NewTransportError(ErrCodeAIServiceFailed, "boom", fmt.Errorf("dial tcp: refused")), transport: true},
		{name: "empty", err: NewEmptyResponseError(), empty: true},
		{name: "malformed", err: NewMalformedResponseError(parseErr), malformed: true},
		{name: "schema violation", err: NewSchemaViolationError(fmt.Errorf("score too high")), malformed: true},
		{name: "wrapped transport", err: fmt.Errorf("analyze: %w", NewTransportError(ErrCodeAIServiceFailed, "x", nil)), transport: true},
		{name: "plain error", err: fmt.Errorf("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.config, IsConfigurationError(tt.err), "IsConfigurationError")
			assert.Equal(t, tt.transport, IsTransportError(tt.err), "IsTransportError")
			assert.Equal(t, tt.empty, IsEmptyResponseError(tt.err), "IsEmptyResponseError")
			assert.Equal(t, tt.malformed, IsMalformedResponseError(tt.err), "IsMalformedResponseError")
		})
	}
}

func TestMalformedResponseErrorKeepsCause(t *testing.T) {
	parseErr := &json.SyntaxError{Offset: 7}
	err := NewMalformedResponseError(parseErr)

	var syntaxErr *json.SyntaxError
	require.True(t, stderrors.As(err, &syntaxErr), "json syntax error must be reachable through Unwrap")
	assert.Equal(t, int64(7), syntaxErr.Offset)
}

func TestLogErrorIncludesCodeAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewTransportError(ErrCodeAIServiceFailed, "service unavailable", fmt.Errorf("503")).
		WithContext("status_code", 503)
	logger.LogError(err, "analysis failed", "job_title", "Truck Driver")

	out := buf.String()
	for _, want := range []string{`"error_code":"AI_SERVICE_FAILED"`, `"status_code":503`, `"job_title":"Truck Driver"`, `"cause":"503"`} {
		assert.Contains(t, out, want)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose")
	assert.Error(t, err)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		_, err := New(level)
		assert.NoError(t, err, "level %q", level)
	}
}
