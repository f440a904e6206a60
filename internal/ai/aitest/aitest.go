// Package aitest provides a scripted Oracle for tests.
package aitest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"skillpick/internal/ai"
)

// Response is one scripted oracle reply
type Response struct {
	Payload string
	Err     error
	Delay   time.Duration
}

// JSON builds a Response holding v encoded as JSON
func JSON(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("aitest: cannot marshal response: %v", err))
	}
	return Response{Payload: string(data)}
}

// Text builds a Response with a raw payload
func Text(payload string) Response {
	return Response{Payload: payload}
}

// Fail builds a Response returning err
func Fail(err error) Response {
	return Response{Err: err}
}

// Oracle replays scripted responses per operation. Once a script is down to
// its last response that response repeats.
type Oracle struct {
	mu       sync.Mutex
	scripts  map[string][]Response
	handlers map[string]func(ai.PromptSpec) Response
	calls    []ai.PromptSpec
}

var _ ai.Oracle = (*Oracle)(nil)

// New creates an empty scripted oracle
func New() *Oracle {
	return &Oracle{
		scripts:  make(map[string][]Response),
		handlers: make(map[string]func(ai.PromptSpec) Response),
	}
}

// On appends responses to an operation's script
func (o *Oracle) On(operation string, responses ...Response) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts[operation] = append(o.scripts[operation], responses...)
	return o
}

// Handle answers an operation with fn. Handlers win over scripts.
func (o *Oracle) Handle(operation string, fn func(ai.PromptSpec) Response) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[operation] = fn
	return o
}

// Judge implements ai.Oracle
func (o *Oracle) Judge(ctx context.Context, spec ai.PromptSpec) (ai.Payload, error) {
	o.mu.Lock()
	o.calls = append(o.calls, spec)
	var resp Response
	if handler, ok := o.handlers[spec.Operation]; ok {
		o.mu.Unlock()
		resp = handler(spec)
	} else {
		script := o.scripts[spec.Operation]
		if len(script) == 0 {
			o.mu.Unlock()
			return nil, fmt.Errorf("aitest: no scripted response for %s", spec.Operation)
		}
		resp = script[0]
		if len(script) > 1 {
			o.scripts[spec.Operation] = script[1:]
		}
		o.mu.Unlock()
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return ai.Payload(resp.Payload), nil
}

// Calls returns the specs received for an operation, or all specs when operation is empty
func (o *Oracle) Calls(operation string) []ai.PromptSpec {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []ai.PromptSpec
	for _, spec := range o.calls {
		if operation == "" || spec.Operation == operation {
			out = append(out, spec)
		}
	}
	return out
}

// CallCount returns how many times an operation was called
func (o *Oracle) CallCount(operation string) int {
	return len(o.Calls(operation))
}

// Client wraps the oracle in an ai.Client with the built-in prompts
func (o *Oracle) Client() *ai.Client {
	return ai.NewClient(o, ai.NewDefaultPromptStore())
}
