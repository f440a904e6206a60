package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"skillpick/internal/config"
	skillpickErrors "skillpick/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiBackend selects between the Gemini Developer API and Vertex AI
type GeminiBackend struct {
	Backend  string // gemini | vertex
	Project  string
	Location string
	BaseURL  string // optional endpoint override
}

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	operation      string
	circuitBreaker *OracleCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	observer       Observer
	logger         *skillpickErrors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewGeminiProvider creates a Gemini provider for one operation
func NewGeminiProvider(cfg *config.OperationAIConfig, backend GeminiBackend, operation string, observer Observer, logger *skillpickErrors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	}
	switch backend.Backend {
	case "vertex":
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = backend.Project
		clientConfig.Location = backend.Location
	default:
		clientConfig.Backend = genai.BackendGeminiAPI
		clientConfig.APIKey = cfg.APIKey
	}
	if backend.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: backend.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, skillpickErrors.NewConfigError(skillpickErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		operation:      operation,
		circuitBreaker: NewOracleCircuitBreaker(operation, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operation, cfg, logger),
		observer:       observer,
		logger:         logger,
	}, nil
}

// Judge implements Oracle
func (g *GeminiProvider) Judge(ctx context.Context, spec PromptSpec) (Payload, error) {
	tracer := otel.Tracer("skillpick.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+spec.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("ai.operation", spec.Operation),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.prompt_length", len(spec.UserPrompt)),
	)

	genaiConfig := g.buildConfig(spec.Schema)
	userPrompt := spec.UserPrompt
	if spec.SystemPrompt != "" {
		if *g.config.UseSystemPrompts {
			genaiConfig.SystemInstruction = genai.NewContentFromText(spec.SystemPrompt, genai.RoleUser)
		} else {
			userPrompt = spec.SystemPrompt + "\n\n" + userPrompt
		}
	}

	var usage *TokenUsage
	payload, err := g.circuitBreaker.Execute(func() (Payload, error) {
		result, err := g.executeWithRetry(ctx, spec.Operation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
		if err != nil {
			return nil, err
		}
		usage = extractTokenUsage(result)
		return Payload(result.Text()), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, skillpickErrors.NewNetworkError(skillpickErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+spec.Operation, err)
	}

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		g.observer.ObserveOracleTokens(ctx, spec.Operation, usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return payload, nil
}

func (g *GeminiProvider) buildConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// executeWithRetry retries transient failures with exponential backoff and jitter
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			if err := sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if jitterBig, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(jitterBig.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Provider:  "gemini",
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":   g.circuitBreaker.GetStats(),
		"overall_healthy": g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements Provider
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
