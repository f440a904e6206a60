package ai

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"skillpick/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreResult struct {
	Score float64 `json:"score"`
}

func validScore(r *scoreResult) error {
	if r.Score < 0 || r.Score > 100 {
		return Invalid("score %.1f is outside [0,100]", r.Score)
	}
	return nil
}

// sequence returns an oracle that answers with the given payloads in order
// and records the user prompts it saw.
func sequence(prompts *[]string, payloads ...string) Oracle {
	var calls atomic.Int32
	return FuncOracle(func(ctx context.Context, spec PromptSpec) (Payload, error) {
		*prompts = append(*prompts, spec.UserPrompt)
		i := int(calls.Add(1)) - 1
		if i >= len(payloads) {
			i = len(payloads) - 1
		}
		return Payload(payloads[i]), nil
	})
}

func TestJudgeFirstAttempt(t *testing.T) {
	var prompts []string
	oracle := sequence(&prompts, "```json\n{\"score\": 42}\n```")

	got, err := Judge(context.Background(), oracle, PromptSpec{Operation: "resume", UserPrompt: "grade"}, validScore, JudgeOptions{Retries: 2})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Score)
	assert.Len(t, prompts, 1)
}

func TestJudgeRetriesWithCorrectiveInstruction(t *testing.T) {
	var prompts []string
	oracle := sequence(&prompts, `not json at all`, `{"score": 140}`, `{"score": 90}`)

	got, err := Judge(context.Background(), oracle, PromptSpec{Operation: "resume", UserPrompt: "grade"}, validScore, JudgeOptions{Retries: 2})
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Score)
	require.Len(t, prompts, 3)

	assert.Equal(t, "grade", prompts[0])
	assert.True(t, strings.HasPrefix(prompts[1], "grade"))
	assert.Contains(t, prompts[1], "previous response was rejected")
	assert.Contains(t, prompts[1], ErrNoJSONObject.Error())
	assert.Contains(t, prompts[2], "score 140.0 is outside [0,100]")
	// Corrections are not stacked
	assert.Equal(t, 1, strings.Count(prompts[2], "previous response was rejected"))
}

func TestJudgeContractViolationAfterRetries(t *testing.T) {
	var prompts []string
	oracle := sequence(&prompts, `{"score": -5}`)

	_, err := Judge(context.Background(), oracle, PromptSpec{Operation: "coding"}, validScore, JudgeOptions{Retries: 2})
	require.Error(t, err)
	assert.Len(t, prompts, 3)
	assert.True(t, errors.Is(err, errors.ErrorTypeOracleContractViolation))

	var contractErr *ContractError
	require.True(t, stderrors.As(err, &contractErr))
	assert.Equal(t, "coding", contractErr.Operation)
	assert.Equal(t, 3, contractErr.Attempts)

	var validationErr *ValidationError
	assert.True(t, stderrors.As(err, &validationErr))
}

func TestJudgeZeroRetries(t *testing.T) {
	var prompts []string
	oracle := sequence(&prompts, `{}`, `{"score": 10}`)

	_, err := Judge(context.Background(), oracle, PromptSpec{Operation: "jd"}, func(r *scoreResult) error {
		if r.Score == 0 {
			return Invalid("score missing")
		}
		return nil
	}, JudgeOptions{Retries: 0})
	require.Error(t, err)
	assert.Len(t, prompts, 1)
}

func TestJudgeNegativeRetriesUsesDefault(t *testing.T) {
	var prompts []string
	oracle := sequence(&prompts, `oops`)

	_, err := Judge(context.Background(), oracle, PromptSpec{Operation: "jd"}, validScore, JudgeOptions{Retries: -1})
	require.Error(t, err)
	assert.Len(t, prompts, DefaultContractRetries+1)
}

func TestJudgeTimeoutCountsAsFailedAttempt(t *testing.T) {
	var calls atomic.Int32
	oracle := FuncOracle(func(ctx context.Context, spec PromptSpec) (Payload, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return Payload(`{"score": 55}`), nil
	})

	got, err := Judge(context.Background(), oracle, PromptSpec{Operation: "theory"}, validScore,
		JudgeOptions{Retries: 1, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.Score)
	assert.Equal(t, int32(2), calls.Load())
}

func TestJudgeProviderErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	oracle := FuncOracle(func(ctx context.Context, spec PromptSpec) (Payload, error) {
		if calls.Add(1) == 1 {
			return nil, errors.NewNetworkError(errors.ErrCodeAIServiceFailed, "upstream down", nil)
		}
		return Payload(`{"score": 70}`), nil
	})

	got, err := Judge(context.Background(), oracle, PromptSpec{Operation: "summary"}, validScore, JudgeOptions{Retries: 2})
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Score)
}

func TestJudgeStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	oracle := FuncOracle(func(ctx context.Context, spec PromptSpec) (Payload, error) {
		calls.Add(1)
		cancel()
		return nil, ctx.Err()
	})

	_, err := Judge(ctx, oracle, PromptSpec{Operation: "jd"}, validScore, JudgeOptions{Retries: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

type recordingObserver struct {
	attempts int
	err      error
}

func (r *recordingObserver) ObserveOracleCall(_ context.Context, _ string, attempts int, _ time.Duration, err error) {
	r.attempts = attempts
	r.err = err
}

func (r *recordingObserver) ObserveOracleTokens(context.Context, string, int64, int64, int64) {}

func TestJudgeReportsAttemptsToObserver(t *testing.T) {
	var prompts []string
	observer := &recordingObserver{}
	oracle := sequence(&prompts, `{"score": 101}`, `{"score": 99}`)

	_, err := Judge(context.Background(), oracle, PromptSpec{Operation: "resume"}, validScore,
		JudgeOptions{Retries: 2, Observer: observer})
	require.NoError(t, err)
	assert.Equal(t, 2, observer.attempts)
	assert.NoError(t, observer.err)
}
