package observability

import (
	"context"
	"fmt"
	"time"

	"skillpick/internal/ai"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds all custom metrics for SkillPick. A nil *Metrics records nothing.
type Metrics struct {
	// Oracle metrics
	OracleCallDuration metric.Float64Histogram
	OracleCalls        metric.Int64Counter
	OracleRetries      metric.Int64Counter
	OracleErrors       metric.Int64Counter
	OracleTokens       metric.Int64Histogram

	// Business metrics
	ProcessesCreated     metric.Int64Counter
	Registrations        metric.Int64Counter
	SubmissionsEvaluated metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

var _ ai.Observer = (*Metrics)(nil)

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	if err := m.createOracleMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createRateLimitMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

// createOracleMetrics creates Judgment Oracle metrics
func (m *Metrics) createOracleMetrics(meter metric.Meter) error {
	var err error

	m.OracleCallDuration, err = meter.Float64Histogram(
		"skillpick_oracle_call_duration_seconds",
		metric.WithDescription("Time spent in oracle calls including corrective retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle call duration metric: %w", err)
	}

	m.OracleCalls, err = meter.Int64Counter(
		"skillpick_oracle_calls_total",
		metric.WithDescription("Total number of oracle calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle call count metric: %w", err)
	}

	m.OracleRetries, err = meter.Int64Counter(
		"skillpick_oracle_retries_total",
		metric.WithDescription("Total number of corrective oracle retries"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle retry count metric: %w", err)
	}

	m.OracleErrors, err = meter.Int64Counter(
		"skillpick_oracle_errors_total",
		metric.WithDescription("Total number of oracle calls that failed after all retries"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle error count metric: %w", err)
	}

	m.OracleTokens, err = meter.Int64Histogram(
		"skillpick_oracle_token_usage",
		metric.WithDescription("Token usage of oracle requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle token usage metric: %w", err)
	}

	return nil
}

// createBusinessMetrics creates hiring pipeline metrics
func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.ProcessesCreated, err = meter.Int64Counter(
		"skillpick_processes_created_total",
		metric.WithDescription("Total number of hiring processes created"),
	)
	if err != nil {
		return fmt.Errorf("failed to create processes created metric: %w", err)
	}

	m.Registrations, err = meter.Int64Counter(
		"skillpick_registrations_total",
		metric.WithDescription("Total number of screened registrations by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create registrations metric: %w", err)
	}

	m.SubmissionsEvaluated, err = meter.Int64Counter(
		"skillpick_submissions_evaluated_total",
		metric.WithDescription("Total number of evaluated submissions by verdict"),
	)
	if err != nil {
		return fmt.Errorf("failed to create submissions evaluated metric: %w", err)
	}

	return nil
}

// createRateLimitMetrics creates rate limiting metrics
func (m *Metrics) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"skillpick_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// ObserveOracleCall implements ai.Observer
func (m *Metrics) ObserveOracleCall(ctx context.Context, operation string, attempts int, duration time.Duration, err error) {
	if m == nil || m.OracleCalls == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)

	m.OracleCalls.Add(ctx, 1, attrs)
	m.OracleCallDuration.Record(ctx, duration.Seconds(), attrs)
	if attempts > 1 {
		m.OracleRetries.Add(ctx, int64(attempts-1), metric.WithAttributes(attribute.String("operation", operation)))
	}
	if err != nil {
		m.OracleErrors.Add(ctx, 1, attrs)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("oracle.operation", operation),
			attribute.Int("oracle.attempts", attempts),
		)
	}
}

// ObserveOracleTokens implements ai.Observer
func (m *Metrics) ObserveOracleTokens(ctx context.Context, operation string, input, output, total int64) {
	if m == nil || m.OracleTokens == nil {
		return
	}
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", input},
		{"output", output},
		{"total", total},
	}
	for _, tt := range tokenTypes {
		m.OracleTokens.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordProcessCreated counts a created hiring process
func (m *Metrics) RecordProcessCreated(ctx context.Context) {
	if m == nil || m.ProcessesCreated == nil {
		return
	}
	m.ProcessesCreated.Add(ctx, 1)
}

// RecordRegistration counts a screened registration by its status
func (m *Metrics) RecordRegistration(ctx context.Context, status string) {
	if m == nil || m.Registrations == nil {
		return
	}
	m.Registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordEvaluation counts an evaluated submission by its verdict
func (m *Metrics) RecordEvaluation(ctx context.Context, verdict string) {
	if m == nil || m.SubmissionsEvaluated == nil {
		return
	}
	m.SubmissionsEvaluated.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

// RecordRateLimitHit counts a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, endpoint string) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}
