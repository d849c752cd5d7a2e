package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// The four failure kinds an analysis call can end in. Each is an *AppError
// discriminated by type and code so callers can branch with errors.As.

// NewMissingCredentialError reports that no AI credential is configured.
func NewMissingCredentialError(provider string) *AppError {
	return NewConfigError(ErrCodeMissingAPIKey,
		"API key is missing. Set SURVIVALIST_AI_APIKEY, GEMINI_API_KEY or API_KEY", nil).
		WithContext("provider", provider)
}

// NewTransportError wraps a failure surfaced by the underlying service call.
func NewTransportError(code, message string, cause error) *AppError {
	return NewNetworkError(code, message, cause)
}

// NewEmptyResponseError reports a reply without any text payload.
func NewEmptyResponseError() *AppError {
	return NewAIError(ErrCodeEmptyResponse, "no response generated from AI", nil)
}

// NewMalformedResponseError wraps a JSON parse failure of the reply text.
func NewMalformedResponseError(cause error) *AppError {
	return NewAIError(ErrCodeMalformedResponse, "failed to parse AI response", cause)
}

// NewSchemaViolationError reports a reply that parsed but broke the response contract.
func NewSchemaViolationError(cause error) *AppError {
	return NewAIError(ErrCodeSchemaViolation, "AI response does not match the analysis schema", cause)
}

// IsValidationError reports whether err is rejected input.
func IsValidationError(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == ErrorTypeValidation
}

// IsConfigurationError reports whether err is a configuration failure.
func IsConfigurationError(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == ErrorTypeConfig
}

// IsTransportError reports whether err is a network or service failure.
func IsTransportError(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == ErrorTypeNetwork
}

// IsEmptyResponseError reports whether err is an empty reply.
func IsEmptyResponseError(err error) bool {
	return GetErrorCode(err) == ErrCodeEmptyResponse
}

// IsMalformedResponseError reports whether the reply could not be turned into
// a valid analysis, either because it was not JSON or because it broke the schema.
func IsMalformedResponseError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrCodeMalformedResponse || code == ErrCodeSchemaViolation
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode returns the code of the first *AppError in err's chain, or "".
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	return &Logger{logger: slog.New(handler)}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if appErr, ok := AsAppError(err); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "cause", appErr.Cause.Error())
		}

		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
		return
	}

	logArgs := append([]any{"error", err.Error()}, args...)
	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

func (l *Logger) Error(message string, args ...any) {
	l.logger.Error(message, args...)
}

// With returns a logger that always adds args to its records.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// New creates a new logger instance writing to stdout
func New(level string) (*Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(slogLevel), nil
}

// ParseLevel maps a configured level name to its slog level
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard, slog.LevelError+1)
}

// Common error codes
const (
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeAIServiceFailed   = "AI_SERVICE_FAILED"
	ErrCodeAICircuitOpen     = "AI_CIRCUIT_OPEN"
	ErrCodeAITimeout         = "AI_TIMEOUT"
	ErrCodeEmptyResponse     = "AI_EMPTY_RESPONSE"
	ErrCodeMalformedResponse = "AI_RESPONSE_PARSE_FAILED"
	ErrCodeSchemaViolation   = "AI_RESPONSE_SCHEMA_VIOLATION"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeMissingAPIKey     = "MISSING_API_KEY"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeVaultFailed       = "VAULT_FAILED"
	ErrCodeInvalidProfile    = "INVALID_PROFILE"
	ErrCodeFileWriteFailed   = "FILE_WRITE_FAILED"
	ErrCodeAnalysisFailed    = "ANALYSIS_FAILED"
)
