package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultInstructions is the candidate-facing text shown with a public test link
const DefaultInstructions = "Welcome to SkillPick AI! Upload your resume to begin. " +
	"If your profile matches the job description, the AI engine will unlock your personalized assessment: " +
	"MCQs, coding tasks, and theory questions."

// Defaults returns the shipped configuration without reading files or the
// environment
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config: default values do not decode: %v", err))
	}
	return &config
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.backend", "gemini")
	v.SetDefault("ai.project", "")
	v.SetDefault("ai.location", "us-central1")
	v.SetDefault("ai.baseURL", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.contractRetries", 2)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.useSystemPrompts", true)
	v.SetDefault("ai.watchPrompts", false)

	// Operation defaults. Grading runs cold, generation a little warmer.
	opTemperature := map[string]float64{
		OperationJD:        0.2,
		OperationResume:    0.1,
		OperationQuestions: 0.7,
		OperationCoding:    0.1,
		OperationTheory:    0.1,
		OperationSummary:   0.5,
	}
	opTimeout := map[string]time.Duration{
		OperationJD:        60 * time.Second,
		OperationResume:    60 * time.Second,
		OperationQuestions: 120 * time.Second, // large structured output
		OperationCoding:    90 * time.Second,
		OperationTheory:    90 * time.Second,
		OperationSummary:   45 * time.Second,
	}
	for _, op := range Operations {
		prefix := "ai." + op + "."
		v.SetDefault(prefix+"provider", "")
		v.SetDefault(prefix+"model", "")
		v.SetDefault(prefix+"timeout", opTimeout[op])
		v.SetDefault(prefix+"apiKey", "")
		v.SetDefault(prefix+"temperature", opTemperature[op])
		v.SetDefault(prefix+"prompts.systemFile", "")
		v.SetDefault(prefix+"prompts.userFile", "")

		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Minute) // registration and submit wait on the oracle
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.corsOrigins", []string{"http://localhost:5173"})
	v.SetDefault("server.maxBodyBytes", 1<<20)       // 1MB JSON bodies
	v.SetDefault("server.maxUploadBytes", 10<<20)    // 10MB resumes
	v.SetDefault("server.tlsCertFile", "")
	v.SetDefault("server.tlsKeyFile", "")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.instructions", DefaultInstructions)
	v.SetDefault("app.acceptedMessage", "Resume approved! Test unlocked.")
	v.SetDefault("app.rejectedMessage", "Your profile does not match our requirements.")

	// Database Configuration
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)
	v.SetDefault("database.autoMigrate", true)
	v.SetDefault("database.logLevel", "warn")

	// Question count limits
	v.SetDefault("limits.maxMCQ", 30)
	v.SetDefault("limits.maxCoding", 10)
	v.SetDefault("limits.maxTheory", 20)
	v.SetDefault("limits.maxTitleLength", 255)

	// Screening
	v.SetDefault("screening.threshold", 50.0)
	v.SetDefault("screening.maxResumeChars", 30000)

	// Scoring
	v.SetDefault("scoring.weights.resume", 0.20)
	v.SetDefault("scoring.weights.mcq", 0.20)
	v.SetDefault("scoring.weights.coding", 0.35)
	v.SetDefault("scoring.weights.theory", 0.25)
	v.SetDefault("scoring.thresholds.strongHire", 85.0)
	v.SetDefault("scoring.thresholds.hire", 65.0)
	v.SetDefault("scoring.thresholds.borderline", 45.0)
	v.SetDefault("scoring.vacuousCredit", 100.0)
	v.SetDefault("scoring.excludeEmptySections", false)

	// Events
	v.SetDefault("events.driver", "log")
	v.SetDefault("events.amqpURL", "")
	v.SetDefault("events.queue", "skillpick.events")

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.oracleKey", "")
	v.SetDefault("vault.secrets.databaseDSN", "")
	v.SetDefault("vault.secrets.amqpURL", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "skillpick")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
