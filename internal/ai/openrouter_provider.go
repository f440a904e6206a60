package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skillpick/internal/config"
	"skillpick/internal/errors"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultOpenRouterURL is the OpenAI-compatible endpoint used when ai.baseURL is empty
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements Provider against an OpenAI-compatible
// chat completions API
type OpenRouterProvider struct {
	client         *resty.Client
	config         *config.OperationAIConfig
	operation      string
	circuitBreaker *OracleCircuitBreaker
	observer       Observer
	logger         *errors.Logger
}

var _ Provider = (*OpenRouterProvider)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float32          `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format"`
}

// NewOpenRouterProvider creates an OpenRouter provider for one operation
func NewOpenRouterProvider(cfg *config.OperationAIConfig, baseURL, operation string, observer Observer, logger *errors.Logger) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if observer == nil {
		observer = nopObserver{}
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(*cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "SkillPick").
		SetRetryCount(*cfg.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return isRetryableError(err)
			}
			return retryableStatus(r.StatusCode())
		})

	return &OpenRouterProvider{
		client:         client,
		config:         cfg,
		operation:      operation,
		circuitBreaker: NewOracleCircuitBreaker(operation, cfg, logger),
		observer:       observer,
		logger:         logger,
	}
}

// Judge implements Oracle
func (o *OpenRouterProvider) Judge(ctx context.Context, spec PromptSpec) (Payload, error) {
	tracer := otel.Tracer("skillpick.ai.openrouter")
	ctx, span := tracer.Start(ctx, "openrouter."+spec.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openrouter"),
		attribute.String("ai.model", o.config.Model),
		attribute.String("ai.operation", spec.Operation),
	)

	request := o.buildRequest(spec)

	var body string
	payload, err := o.circuitBreaker.Execute(func() (Payload, error) {
		resp, err := o.client.R().
			SetContext(ctx).
			SetBody(request).
			Post("/chat/completions")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("chat completion returned %s: %s", resp.Status(), truncate(resp.String(), 512))
		}

		body = resp.String()
		content := gjson.Get(body, "choices.0.message.content")
		if !content.Exists() || content.String() == "" {
			return nil, fmt.Errorf("chat completion returned no content")
		}
		return Payload(content.String()), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, errors.NewNetworkError(errors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+spec.Operation, err)
	}

	usage := gjson.GetMany(body, "usage.prompt_tokens", "usage.completion_tokens", "usage.total_tokens")
	if usage[2].Exists() {
		span.SetAttributes(attribute.Int64("ai.tokens.total", usage[2].Int()))
		o.observer.ObserveOracleTokens(ctx, spec.Operation, usage[0].Int(), usage[1].Int(), usage[2].Int())
	}

	span.SetAttributes(attribute.Bool("success", true))
	return payload, nil
}

func (o *OpenRouterProvider) buildRequest(spec PromptSpec) chatRequest {
	user := spec.UserPrompt
	if spec.Schema != nil {
		if schema, err := json.Marshal(spec.Schema); err == nil {
			user += "\n\nThe JSON object must match this schema:\n" + string(schema)
		}
	}

	messages := make([]chatMessage, 0, 2)
	if spec.SystemPrompt != "" {
		if *o.config.UseSystemPrompts {
			messages = append(messages, chatMessage{Role: "system", Content: spec.SystemPrompt})
		} else {
			user = spec.SystemPrompt + "\n\n" + user
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	request := chatRequest{
		Model:          o.config.Model,
		Messages:       messages,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	if *o.config.Temperature > 0 {
		request.Temperature = o.config.Temperature
	}
	return request
}

// GetModelInfo queries the models endpoint for the configured model
func (o *OpenRouterProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: "openrouter", Name: o.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := o.client.R().SetContext(checkCtx).Get("/models")
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		return info
	}
	if resp.StatusCode() != http.StatusOK {
		info.Error = fmt.Sprintf("Failed to get model info: %s", resp.Status())
		return info
	}

	model := gjson.Get(resp.String(), fmt.Sprintf(`data.#(id==%q)`, o.config.Model))
	if !model.Exists() {
		info.Error = "Model not listed by provider"
		return info
	}
	info.Available = true
	info.DisplayName = model.Get("name").String()
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (o *OpenRouterProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":   o.circuitBreaker.GetStats(),
		"overall_healthy": o.circuitBreaker.IsHealthy(),
	}
}

// Close implements Provider
func (o *OpenRouterProvider) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
