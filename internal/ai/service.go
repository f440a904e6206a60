package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"skillpick/internal/config"
	"skillpick/internal/errors"
)

// Service owns one provider per oracle operation and routes calls by
// PromptSpec.Operation.
type Service struct {
	providers map[string]Provider
	settings  map[string]config.OperationAIConfig
	prompts   *PromptStore
	observer  Observer
	logger    *errors.Logger
}

var _ Oracle = (*Service)(nil)

// NewService creates a provider for every operation from the configuration
func NewService(cfg *config.Config, prompts *PromptStore, observer Observer, logger *errors.Logger) (*Service, error) {
	if observer == nil {
		observer = nopObserver{}
	}
	s := &Service{
		providers: make(map[string]Provider, len(config.Operations)),
		settings:  make(map[string]config.OperationAIConfig, len(config.Operations)),
		prompts:   prompts,
		observer:  observer,
		logger:    logger,
	}

	for _, op := range config.Operations {
		opCfg := cfg.GetOperationConfig(op)

		logger.Debug("Initializing oracle provider",
			"provider", opCfg.Provider,
			"operation", op,
			"model", opCfg.Model,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"max_retries", *opCfg.MaxRetries,
			"contract_retries", *opCfg.ContractRetries,
			"use_system_prompts", *opCfg.UseSystemPrompts)

		provider, err := newProvider(cfg, &opCfg, op, observer, logger)
		if err != nil {
			return nil, err
		}
		s.providers[op] = provider
		s.settings[op] = opCfg
	}

	return s, nil
}

func newProvider(cfg *config.Config, opCfg *config.OperationAIConfig, operation string, observer Observer, logger *errors.Logger) (Provider, error) {
	switch opCfg.Provider {
	case "gemini":
		backend := GeminiBackend{Backend: cfg.AI.Backend, Project: cfg.AI.Project, Location: cfg.AI.Location, BaseURL: cfg.AI.BaseURL}
		return NewGeminiProvider(opCfg, backend, operation, observer, logger)
	case "openrouter":
		return NewOpenRouterProvider(opCfg, cfg.AI.BaseURL, operation, observer, logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", opCfg.Provider), nil)
	}
}

// Judge implements Oracle
func (s *Service) Judge(ctx context.Context, spec PromptSpec) (Payload, error) {
	provider, ok := s.providers[spec.Operation]
	if !ok {
		return nil, errors.NewInternalError(errors.ErrCodeInternalServerFailure,
			fmt.Sprintf("No oracle provider for operation %s", spec.Operation), nil)
	}
	return provider.Judge(ctx, spec)
}

// Client returns a Client carrying each operation's timeout and contract retries
func (s *Service) Client() *Client {
	client := NewClient(s, s.prompts)
	for op, opCfg := range s.settings {
		client.WithOptions(op, JudgeOptions{
			Retries:  *opCfg.ContractRetries,
			Timeout:  *opCfg.Timeout,
			Logger:   s.logger.With("operation", op),
			Observer: s.observer,
		})
	}
	return client
}

// GetModelInfo reports the model used for job description analysis
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.providers[config.OperationJD].GetModelInfo(ctx)
}

// CircuitBreakerStats returns per-operation breaker statistics
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(s.providers))
	for op, provider := range s.providers {
		stats[op] = provider.GetCircuitBreakerStats()
	}
	return stats
}

// Close closes every provider
func (s *Service) Close() error {
	var errs []error
	for _, provider := range s.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
