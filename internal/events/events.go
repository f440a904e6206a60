// Package events publishes domain events to the log or a message broker.
package events

import (
	"context"
	"time"

	"skillpick/internal/config"
	"skillpick/internal/errors"
)

// Event types
const (
	ProcessCreated      = "process.created"
	CandidateRegistered = "candidate.registered"
	CandidateEvaluated  = "candidate.evaluated"
)

// Event is a domain event. Data carries type-specific attributes.
type Event struct {
	Type       string         `json:"type"`
	ProcessID  string         `json:"process_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New builds an event stamped with the current time
func New(eventType, processID string, data map[string]any) Event {
	return Event{Type: eventType, ProcessID: processID, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the structured log
type LogPublisher struct {
	logger *errors.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *errors.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	args := []any{"event", event.Type, "process_id", event.ProcessID}
	for k, v := range event.Data {
		args = append(args, k, v)
	}
	p.logger.Info("Domain event", args...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// NewPublisher returns the publisher selected by cfg.Driver
func NewPublisher(cfg config.EventsConfig, logger *errors.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NopPublisher{}, nil
	case "log":
		return NewLogPublisher(logger), nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.Queue, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Unsupported events driver "+cfg.Driver, nil)
	}
}

// Emit publishes event and logs a failure instead of returning it
func Emit(ctx context.Context, p Publisher, logger *errors.Logger, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.LogError(err, "Failed to publish domain event", "event", event.Type, "process_id", event.ProcessID)
	}
}
