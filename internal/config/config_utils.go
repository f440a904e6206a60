package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyLegacyEnvFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyLegacyEnvFallbacks honours the variable names the first SkillPick
// backend used so existing deployments keep working.
func (c *Config) applyLegacyEnvFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" && os.Getenv("SKILLPICK_AI_MODEL") == "" {
		c.AI.Model = model
	}
	if c.Database.DSN == "" {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			c.Database.DSN = dsn
			if c.Database.Driver == "memory" {
				c.Database.Driver = driverFromDSN(dsn)
			}
		}
	}
	if origins := os.Getenv("BACKEND_CORS_ORIGINS"); origins != "" && os.Getenv("SKILLPICK_SERVER_CORSORIGINS") == "" {
		c.Server.CORSOrigins = splitAndTrim(origins)
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("SKILLPICK_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
	// A single comma-separated env value arrives as one element
	if len(c.Server.CORSOrigins) == 1 && strings.Contains(c.Server.CORSOrigins[0], ",") {
		c.Server.CORSOrigins = splitAndTrim(c.Server.CORSOrigins[0])
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// driverFromDSN guesses the GORM driver from a connection URL
func driverFromDSN(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(dsn, "mysql://"), strings.Contains(dsn, "@tcp("):
		return "mysql"
	default:
		return "sqlite"
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"SKILLPICK_AI_APIKEY",
		"SKILLPICK_AI_PROVIDER",
		"SKILLPICK_AI_MODEL",
		"SKILLPICK_SERVER_PORT",
		"SKILLPICK_SERVER_HOST",
		"SKILLPICK_DATABASE_DRIVER",
		"SKILLPICK_DATABASE_DSN",
		"SKILLPICK_APP_LOGLEVEL",
		"SKILLPICK_VAULT_ENABLED",
		"GEMINI_API_KEY", // Legacy support
		"DATABASE_URL",   // Legacy support
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "dsn") || strings.Contains(lower, "url") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s (backend %s)", c.AI.Provider, c.AI.Backend)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Database Driver: %s", c.Database.Driver)
	log.Printf("[CONFIG] Screening Threshold: %.1f", c.Screening.Threshold)
	log.Printf("[CONFIG] Events Driver: %s", c.Events.Driver)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	for _, op := range Operations {
		opCfg := c.operationConfig(op)
		log.Printf("[CONFIG] %s - Provider: %s, Model: %s", op, opCfg.Provider, opCfg.Model)
	}

	log.Println("[CONFIG] =====================================")
}
