package ai

import (
	"errors"
	"testing"
	"time"

	"skillpick/internal/config"

	"github.com/sony/gobreaker/v2"
)

func breakerConfig(maxRequests, minRequests uint32, threshold float64) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.5-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      maxRequests,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      minRequests,
			FailureThreshold: threshold,
		},
	}
}

func TestIndependentCircuitBreakersPerOperation(t *testing.T) {
	breakers := map[string]*OracleCircuitBreaker{
		config.OperationJD:     NewOracleCircuitBreaker(config.OperationJD, breakerConfig(3, 3, 0.6), nil),
		config.OperationCoding: NewOracleCircuitBreaker(config.OperationCoding, breakerConfig(5, 2, 0.7), nil),
		config.OperationTheory: NewOracleCircuitBreaker(config.OperationTheory, breakerConfig(4, 5, 0.5), nil),
	}

	for op, cb := range breakers {
		t.Run(op, func(t *testing.T) {
			stats := cb.GetStats()

			name, ok := stats["name"].(string)
			if !ok {
				t.Fatal("Circuit breaker name not found")
			}
			if want := "Oracle-" + op; name != want {
				t.Errorf("Expected circuit breaker name '%s', got '%s'", want, name)
			}
			if state, _ := stats["state"].(string); state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%s'", state)
			}
			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
			if !cb.IsHealthy() {
				t.Error("Circuit breaker should be healthy initially")
			}
		})
	}

	if breakers[config.OperationJD] == breakers[config.OperationCoding] {
		t.Error("Breakers of different operations must be different instances")
	}
}

func TestCircuitBreakerTripsOnFailureRatio(t *testing.T) {
	cb := NewOracleCircuitBreaker(config.OperationCoding, breakerConfig(1, 2, 0.5), nil)
	failure := errors.New("upstream unavailable")

	for range 2 {
		_, err := cb.Execute(func() (Payload, error) { return nil, failure })
		if !errors.Is(err, failure) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}

	if cb.IsHealthy() {
		t.Fatal("breaker should be open after reaching the failure threshold")
	}

	calls := 0
	_, err := cb.Execute(func() (Payload, error) {
		calls++
		return Payload(`{}`), nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if calls != 0 {
		t.Error("open breaker must not call through")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabled := &config.OperationAIConfig{
		Provider:       "gemini",
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: false},
	}

	cb := NewOracleCircuitBreaker("disabled", disabled, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker still executes and reports healthy
	payload, err := cb.Execute(func() (Payload, error) { return Payload(`{"ok":true}`), nil })
	if err != nil || payload.String() != `{"ok":true}` {
		t.Errorf("nil breaker Execute = %q, %v", payload, err)
	}
	if !cb.IsHealthy() {
		t.Error("nil breaker should be healthy")
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Error("nil breaker stats should report disabled")
	}
	if NewModelCircuitBreaker("disabled", disabled, nil) != nil {
		t.Error("model breaker should be nil when disabled")
	}
}
