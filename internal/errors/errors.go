package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// ErrorType represents the kind of failure surfaced to callers
type ErrorType string

const (
	ErrorTypeValidation              ErrorType = "validation"
	ErrorTypeNotFound                ErrorType = "not_found"
	ErrorTypeDuplicateRegistration   ErrorType = "duplicate_registration"
	ErrorTypeDuplicateSubmission     ErrorType = "duplicate_submission"
	ErrorTypeInvalidState            ErrorType = "invalid_state"
	ErrorTypeUnsupportedFormat       ErrorType = "unsupported_format"
	ErrorTypeOracleContractViolation ErrorType = "oracle_contract_violation"
	ErrorTypeGenerationIncomplete    ErrorType = "generation_incomplete"
	ErrorTypeAnalysis                ErrorType = "analysis_error"
	ErrorTypeEvaluation              ErrorType = "evaluation_error"
	ErrorTypeRateLimited             ErrorType = "rate_limited"
	ErrorTypeUnauthorized            ErrorType = "unauthorized"
	ErrorTypeIO                      ErrorType = "io"
	ErrorTypeNetwork                 ErrorType = "network"
	ErrorTypeConfig                  ErrorType = "config"
	ErrorTypeInternal                ErrorType = "internal"
)

// AppError represents a structured application error.
// Message is user-facing and ends up in the "detail" field of HTTP error bodies.
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

func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewNotFoundError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, code, message, cause)
}

func NewDuplicateRegistrationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeDuplicateRegistration, code, message, cause)
}

func NewDuplicateSubmissionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeDuplicateSubmission, code, message, cause)
}

func NewInvalidStateError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInvalidState, code, message, cause)
}

func NewUnsupportedFormatError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeUnsupportedFormat, code, message, cause)
}

func NewOracleContractError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeOracleContractViolation, code, message, cause)
}

func NewGenerationIncompleteError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeGenerationIncomplete, code, message, cause)
}

func NewAnalysisError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAnalysis, code, message, cause)
}

func NewEvaluationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeEvaluation, code, message, cause)
}

func NewRateLimitedError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeRateLimited, code, message, cause)
}

func NewUnauthorizedError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
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

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the type of the outermost AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, typ ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == typ
}

// HTTPStatus maps an error onto the status code the REST surface returns for it.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeDuplicateRegistration, ErrorTypeDuplicateSubmission, ErrorTypeInvalidState:
		return http.StatusConflict
	case ErrorTypeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case ErrorTypeOracleContractViolation, ErrorTypeGenerationIncomplete,
		ErrorTypeAnalysis, ErrorTypeEvaluation, ErrorTypeNetwork:
		return http.StatusBadGateway
	case ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the user-facing message for err. Errors that are not
// AppErrors are reported generically so internals do not leak.
func Detail(err error) string {
	if appErr, ok := AsAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return "Internal server error"
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

// NewLoggerWithWriter creates a structured logger writing JSON lines to w.
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	return &Logger{logger: slog.New(handler)}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if l == nil {
		return
	}
	if appErr, ok := AsAppError(err); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "error_cause", appErr.Cause.Error())
		}

		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
	} else {
		logArgs := append([]any{"error", err.Error()}, args...)
		l.logger.Error(message, logArgs...)
	}
}

func (l *Logger) Info(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Warn(message, args...)
}

// With returns a logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: l.logger.With(args...)}
}

// Slog exposes the underlying slog.Logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return l.logger
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeProcessNotFound       = "PROCESS_NOT_FOUND"
	ErrCodeTokenNotFound         = "TOKEN_NOT_FOUND"
	ErrCodeCandidateNotFound     = "CANDIDATE_NOT_FOUND"
	ErrCodeResultNotFound        = "RESULT_NOT_FOUND"
	ErrCodeAlreadyRegistered     = "ALREADY_REGISTERED"
	ErrCodeAlreadySubmitted      = "ALREADY_SUBMITTED"
	ErrCodeSubmissionInProgress  = "SUBMISSION_IN_PROGRESS"
	ErrCodeTestNotIssued         = "TEST_NOT_ISSUED"
	ErrCodeStateConflict         = "STATE_CONFLICT"
	ErrCodeUnsupportedResume     = "UNSUPPORTED_RESUME"
	ErrCodeOracleMalformed       = "ORACLE_MALFORMED_OUTPUT"
	ErrCodeQuestionsIncomplete   = "QUESTIONS_INCOMPLETE"
	ErrCodeJDAnalysisFailed      = "JD_ANALYSIS_FAILED"
	ErrCodeScreeningFailed       = "SCREENING_FAILED"
	ErrCodeGradingFailed         = "GRADING_FAILED"
	ErrCodeAIServiceFailed       = "AI_SERVICE_FAILED"
	ErrCodeAITimeout             = "AI_TIMEOUT"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidAPIKey         = "INVALID_API_KEY"
	ErrCodeMissingAPIKey         = "MISSING_API_KEY"
	ErrCodeNetworkTimeout        = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig         = "INVALID_CONFIG"
	ErrCodeStorageFailed         = "STORAGE_FAILED"
	ErrCodeExportFailed          = "EXPORT_FAILED"
	ErrCodeFileNotFound          = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable       = "FILE_NOT_READABLE"
	ErrCodeFileWriteFailed       = "FILE_WRITE_FAILED"
	ErrCodeInvalidInputFile      = "INVALID_INPUT_FILE"
	ErrCodeInvalidOutputFile     = "INVALID_OUTPUT_FILE"
	ErrCodeInvalidFormat         = "INVALID_FORMAT"
	ErrCodeInternalServerFailure = "INTERNAL_ERROR"
)
