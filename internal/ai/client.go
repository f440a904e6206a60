package ai

import (
	"context"
)

// Client is what the pipeline components use to talk to the oracle: the
// oracle itself, the prompt templates and per-operation call options.
type Client struct {
	oracle   Oracle
	prompts  *PromptStore
	options  map[string]JudgeOptions
	defaults JudgeOptions
}

// NewClient creates a client with default options
// (DefaultContractRetries, no per-attempt timeout).
func NewClient(oracle Oracle, prompts *PromptStore) *Client {
	if prompts == nil {
		prompts = NewDefaultPromptStore()
	}
	return &Client{
		oracle:   oracle,
		prompts:  prompts,
		options:  make(map[string]JudgeOptions),
		defaults: JudgeOptions{Retries: DefaultContractRetries},
	}
}

// WithOptions sets the call options of one operation
func (c *Client) WithOptions(operation string, opts JudgeOptions) *Client {
	c.options[operation] = opts
	return c
}

// Options returns the call options of an operation
func (c *Client) Options(operation string) JudgeOptions {
	if opts, ok := c.options[operation]; ok {
		return opts
	}
	return c.defaults
}

// Oracle returns the underlying oracle
func (c *Client) Oracle() Oracle { return c.oracle }

// Prompts returns the prompt store
func (c *Client) Prompts() *PromptStore { return c.prompts }

// Ask renders the operation's prompts with data and runs Judge with the
// operation's options.
func Ask[T any](ctx context.Context, c *Client, operation string, data any, validate func(*T) error) (T, error) {
	spec, err := c.prompts.Spec(operation, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return Judge(ctx, c.oracle, spec, validate, c.Options(operation))
}
