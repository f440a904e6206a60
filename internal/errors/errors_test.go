package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ErrCodeInvalidRequest, "bad", nil), http.StatusUnprocessableEntity},
		{"not found", NewNotFoundError(ErrCodeProcessNotFound, "Process not found", nil), http.StatusNotFound},
		{"duplicate registration", NewDuplicateRegistrationError(ErrCodeAlreadyRegistered, "dup", nil), http.StatusConflict},
		{"duplicate submission", NewDuplicateSubmissionError(ErrCodeAlreadySubmitted, "dup", nil), http.StatusConflict},
		{"invalid state", NewInvalidStateError(ErrCodeTestNotIssued, "state", nil), http.StatusConflict},
		{"unsupported format", NewUnsupportedFormatError(ErrCodeUnsupportedResume, "fmt", nil), http.StatusUnsupportedMediaType},
		{"oracle", NewOracleContractError(ErrCodeOracleMalformed, "oracle", nil), http.StatusBadGateway},
		{"generation", NewGenerationIncompleteError(ErrCodeQuestionsIncomplete, "short", nil), http.StatusBadGateway},
		{"analysis", NewAnalysisError(ErrCodeJDAnalysisFailed, "jd", nil), http.StatusBadGateway},
		{"evaluation", NewEvaluationError(ErrCodeGradingFailed, "grading", nil), http.StatusBadGateway},
		{"rate limited", NewRateLimitedError(ErrCodeRateLimitExceeded, "slow down", nil), http.StatusTooManyRequests},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTypeOfWrapped(t *testing.T) {
	inner := NewNotFoundError(ErrCodeCandidateNotFound, "Candidate not found", nil)
	wrapped := fmt.Errorf("loading candidate: %w", inner)

	if !Is(wrapped, ErrorTypeNotFound) {
		t.Errorf("expected wrapped error to be not_found, got %s", TypeOf(wrapped))
	}
	if Detail(wrapped) != "Candidate not found" {
		t.Errorf("Detail() = %q", Detail(wrapped))
	}
	if Detail(fmt.Errorf("secret internals")) != "Internal server error" {
		t.Error("non-application errors must not leak their message")
	}
	if Is(nil, ErrorTypeInternal) {
		t.Error("nil error should not match any type")
	}
}

func TestLogErrorIncludesAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewEvaluationError(ErrCodeGradingFailed, "grading failed", fmt.Errorf("timeout")).
		WithContext("candidate_id", "c-1")
	logger.LogError(err, "submit failed", "attempt", 2)

	var entry map[string]any
	if jsonErr := json.Unmarshal(buf.Bytes(), &entry); jsonErr != nil {
		t.Fatalf("log line is not JSON: %v (%s)", jsonErr, buf.String())
	}
	checks := map[string]any{
		"msg":          "submit failed",
		"error_type":   "evaluation_error",
		"error_code":   ErrCodeGradingFailed,
		"error_cause":  "timeout",
		"candidate_id": "c-1",
	}
	for key, want := range checks {
		if entry[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, entry[key], want)
		}
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("extra args not logged: %v", entry["attempt"])
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose"); err == nil || !strings.Contains(err.Error(), "verbose") {
		t.Errorf("expected invalid level error, got %v", err)
	}
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) failed: %v", level, err)
		}
	}
}
