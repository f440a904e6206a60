package ai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"skillpick/internal/errors"
)

// DefaultContractRetries is the number of corrective retries after the first attempt
const DefaultContractRetries = 2

// JudgeOptions tunes a single Judge call
type JudgeOptions struct {
	// Retries is the number of corrective attempts after the first one.
	// Negative values mean DefaultContractRetries.
	Retries int
	// Timeout bounds every attempt. Zero means no per-attempt timeout.
	Timeout  time.Duration
	Logger   *errors.Logger
	Observer Observer
}

// ContractError reports that the oracle never produced an acceptable payload
type ContractError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("oracle %s: no valid response after %d attempts: %v", e.Operation, e.Attempts, e.Cause)
}

func (e *ContractError) Unwrap() error { return e.Cause }

// ValidationError is returned by validators to explain what is wrong with a payload.
// The message is fed back to the oracle verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Judge asks the oracle for a JSON object, decodes it into T and validates it.
// Malformed output, validation failures, provider errors and per-attempt
// timeouts all trigger a retry with a corrective instruction appended to the
// user prompt. After the last attempt an oracle_contract_violation AppError
// wrapping *ContractError is returned.
func Judge[T any](ctx context.Context, oracle Oracle, spec PromptSpec, validate func(*T) error, opts JudgeOptions) (T, error) {
	var zero T

	retries := opts.Retries
	if retries < 0 {
		retries = DefaultContractRetries
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	started := time.Now()
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= retries; attempt++ {
		attempts++
		attemptSpec := spec
		if lastErr != nil {
			attemptSpec.UserPrompt = spec.UserPrompt + correctiveInstruction(lastErr)
			opts.Logger.Warn("Retrying oracle call with corrective instruction",
				"operation", spec.Operation,
				"attempt", attempt+1,
				"max_attempts", retries+1,
				"reason", lastErr.Error())
		}

		out, err := judgeOnce(ctx, oracle, attemptSpec, validate, opts.Timeout)
		if err == nil {
			observer.ObserveOracleCall(ctx, spec.Operation, attempts, time.Since(started), nil)
			return out, nil
		}

		if ctx.Err() != nil {
			observer.ObserveOracleCall(ctx, spec.Operation, attempts, time.Since(started), ctx.Err())
			return zero, ctx.Err()
		}
		lastErr = err
	}

	contractErr := &ContractError{Operation: spec.Operation, Attempts: attempts, Cause: lastErr}
	observer.ObserveOracleCall(ctx, spec.Operation, attempts, time.Since(started), contractErr)
	opts.Logger.LogError(contractErr, "Oracle contract violated",
		"operation", spec.Operation,
		"attempts", attempts)

	return zero, errors.NewOracleContractError(errors.ErrCodeOracleMalformed,
		fmt.Sprintf("The AI service returned an invalid response for %s", spec.Operation), contractErr)
}

func judgeOnce[T any](ctx context.Context, oracle Oracle, spec PromptSpec, validate func(*T) error, timeout time.Duration) (T, error) {
	var out T

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := oracle.Judge(callCtx, spec)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("the call timed out after %s", timeout)
		}
		return out, err
	}

	raw, err := ExtractJSON(payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("response JSON does not match the requested shape: %w", err)
	}
	if validate != nil {
		if err := validate(&out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func correctiveInstruction(cause error) string {
	return fmt.Sprintf("\n\nYour previous response was rejected: %s\nRespond again with ONLY a single JSON object that follows every rule above. No markdown, no commentary.", cause.Error())
}
