package ai

import (
	"context"
	"time"

	"google.golang.org/genai"
)

// PromptSpec is one request to the Judgment Oracle
type PromptSpec struct {
	Operation    string
	SystemPrompt string
	UserPrompt   string
	// Schema describes the expected JSON object. Providers that support
	// structured output enforce it; the others only see it in the prompt.
	Schema *genai.Schema
}

// Payload is the raw text returned by a provider. It is expected to hold a
// JSON object but may be wrapped in prose or a markdown fence.
type Payload []byte

func (p Payload) String() string { return string(p) }

// Oracle is the generative judgment backend. Implementations must honour ctx
// cancellation and deadlines.
type Oracle interface {
	Judge(ctx context.Context, spec PromptSpec) (Payload, error)
}

// FuncOracle adapts a plain function to the Oracle interface
type FuncOracle func(ctx context.Context, spec PromptSpec) (Payload, error)

// Judge implements Oracle
func (f FuncOracle) Judge(ctx context.Context, spec PromptSpec) (Payload, error) {
	return f(ctx, spec)
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Observer receives oracle call telemetry. observability.Metrics implements it.
type Observer interface {
	ObserveOracleCall(ctx context.Context, operation string, attempts int, duration time.Duration, err error)
	ObserveOracleTokens(ctx context.Context, operation string, input, output, total int64)
}

type nopObserver struct{}

func (nopObserver) ObserveOracleCall(context.Context, string, int, time.Duration, error) {}
func (nopObserver) ObserveOracleTokens(context.Context, string, int64, int64, int64)     {}
