package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.ContractRetries == nil {
		retries := c.AI.ContractRetries
		opCfg.ContractRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		use := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &use
	}
}

// operationConfig returns the raw per-operation section
func (c *Config) operationConfig(operation string) OperationAIConfig {
	switch operation {
	case OperationJD:
		return c.AI.JD
	case OperationResume:
		return c.AI.Resume
	case OperationQuestions:
		return c.AI.Questions
	case OperationCoding:
		return c.AI.Coding
	case OperationTheory:
		return c.AI.Theory
	case OperationSummary:
		return c.AI.Summary
	default:
		return OperationAIConfig{}
	}
}

// GetOperationConfig returns the oracle configuration for an operation with
// fallback to the global AI settings. The returned value is a copy.
func (c *Config) GetOperationConfig(operation string) OperationAIConfig {
	config := c.operationConfig(operation)
	c.applyOperationDefaults(&config)
	return config
}
