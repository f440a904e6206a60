package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Oracle operations. Each one can carry its own model, timeout, retry and
// circuit breaker settings.
const (
	OperationJD        = "jd"
	OperationResume    = "resume"
	OperationQuestions = "questions"
	OperationCoding    = "coding"
	OperationTheory    = "theory"
	OperationSummary   = "summary"
)

// Operations lists every oracle operation in pipeline order.
var Operations = []string{
	OperationJD,
	OperationResume,
	OperationQuestions,
	OperationCoding,
	OperationTheory,
	OperationSummary,
}

// Config holds all application configuration
// Precedence (highest first):
// 1. Vault (if configured)
// 2. Environment variables (SKILLPICK_AI_APIKEY, ...) and .env
// 3. Config file values
// 4. Default values
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Limits        LimitsConfig        `mapstructure:"limits"`
	Screening     ScreeningConfig     `mapstructure:"screening"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Events        EventsConfig        `mapstructure:"events"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds Judgment Oracle configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider         string        `mapstructure:"provider"` // gemini | openrouter
	Backend          string        `mapstructure:"backend"`  // gemini | vertex (gemini provider only)
	Project          string        `mapstructure:"project"`
	Location         string        `mapstructure:"location"`
	BaseURL          string        `mapstructure:"baseURL"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	ContractRetries  int           `mapstructure:"contractRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	WatchPrompts     bool          `mapstructure:"watchPrompts"`

	// Operation-specific configurations
	JD        OperationAIConfig `mapstructure:"jd"`
	Resume    OperationAIConfig `mapstructure:"resume"`
	Questions OperationAIConfig `mapstructure:"questions"`
	Coding    OperationAIConfig `mapstructure:"coding"`
	Theory    OperationAIConfig `mapstructure:"theory"`
	Summary   OperationAIConfig `mapstructure:"summary"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds oracle configuration for one operation.
// Pointer fields distinguish "unset" from zero values so globals can fill them in.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	ContractRetries  *int                 `mapstructure:"contractRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	Prompts          PromptFiles          `mapstructure:"prompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptFiles points at optional files overriding the built-in prompts
type PromptFiles struct {
	SystemFile string `mapstructure:"systemFile"`
	UserFile   string `mapstructure:"userFile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	CORSOrigins    []string      `mapstructure:"corsOrigins"`
	MaxBodyBytes   int64         `mapstructure:"maxBodyBytes"`
	MaxUploadBytes int64         `mapstructure:"maxUploadBytes"`

	// TLS is served when both files are set
	TLSCertFile string `mapstructure:"tlsCertFile"`
	TLSKeyFile  string `mapstructure:"tlsKeyFile"`

	// API keys guard the recruiter routes; empty disables the check
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel        string `mapstructure:"logLevel"`
	Instructions    string `mapstructure:"instructions"`
	AcceptedMessage string `mapstructure:"acceptedMessage"`
	RejectedMessage string `mapstructure:"rejectedMessage"`
}

// DatabaseConfig selects and tunes the candidate store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // memory | sqlite | postgres | mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
	LogLevel        string        `mapstructure:"logLevel"` // silent | error | warn | info
}

// LimitsConfig bounds the question counts a recruiter may request
type LimitsConfig struct {
	MaxMCQ         int `mapstructure:"maxMCQ"`
	MaxCoding      int `mapstructure:"maxCoding"`
	MaxTheory      int `mapstructure:"maxTheory"`
	MaxTitleLength int `mapstructure:"maxTitleLength"`
}

// ScreeningConfig holds resume screening settings
type ScreeningConfig struct {
	Threshold      float64 `mapstructure:"threshold"`
	MaxResumeChars int     `mapstructure:"maxResumeChars"`
}

// ScoringConfig holds score aggregation settings
type ScoringConfig struct {
	Weights              WeightsConfig    `mapstructure:"weights"`
	Thresholds           ThresholdsConfig `mapstructure:"thresholds"`
	VacuousCredit        float64          `mapstructure:"vacuousCredit"`
	ExcludeEmptySections bool             `mapstructure:"excludeEmptySections"`
}

// WeightsConfig holds the component weights of the overall score
type WeightsConfig struct {
	Resume float64 `mapstructure:"resume"`
	MCQ    float64 `mapstructure:"mcq"`
	Coding float64 `mapstructure:"coding"`
	Theory float64 `mapstructure:"theory"`
}

// ThresholdsConfig holds the lower bounds of each verdict bucket
type ThresholdsConfig struct {
	StrongHire float64 `mapstructure:"strongHire"`
	Hire       float64 `mapstructure:"hire"`
	Borderline float64 `mapstructure:"borderline"`
}

// EventsConfig selects where domain events are published
type EventsConfig struct {
	Driver  string `mapstructure:"driver"` // none | log | amqp
	AMQPURL string `mapstructure:"amqpURL"`
	Queue   string `mapstructure:"queue"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from .env, environment variables and a config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom loads configuration, reading configFile explicitly when it is not empty.
func LoadConfigFrom(configFile string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment from .env")
	}

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("SKILLPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'SKILLPICK'")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/skillpick/")
		v.AddConfigPath("$HOME/.config/skillpick")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/skillpick/, $HOME/.config/skillpick, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.ContractRetries < 0 {
		return fmt.Errorf("AI contract retries must not be negative")
	}

	switch c.AI.Provider {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("server TLS needs both tlsCertFile and tlsKeyFile")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres", "mysql":
		if c.Database.DSN == "" && c.Vault.Secrets.DatabaseDSN == "" {
			return fmt.Errorf("database DSN is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	for name, max := range map[string]int{"maxMCQ": c.Limits.MaxMCQ, "maxCoding": c.Limits.MaxCoding, "maxTheory": c.Limits.MaxTheory} {
		if max < 0 || max > 50 {
			return fmt.Errorf("limits.%s must be within [0,50], got %d", name, max)
		}
	}

	if c.Limits.MaxTitleLength < 1 {
		return fmt.Errorf("limits.maxTitleLength must be positive, got %d", c.Limits.MaxTitleLength)
	}

	if c.Screening.Threshold < 0 || c.Screening.Threshold > 100 {
		return fmt.Errorf("screening threshold must be within [0,100]")
	}

	w := c.Scoring.Weights
	if w.Resume < 0 || w.MCQ < 0 || w.Coding < 0 || w.Theory < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	if w.Resume+w.MCQ+w.Coding+w.Theory <= 0 {
		return fmt.Errorf("scoring weights must not all be zero")
	}
	th := c.Scoring.Thresholds
	if !(th.StrongHire >= th.Hire && th.Hire >= th.Borderline) {
		return fmt.Errorf("verdict thresholds must be ordered strongHire >= hire >= borderline")
	}
	if c.Scoring.VacuousCredit < 0 || c.Scoring.VacuousCredit > 100 {
		return fmt.Errorf("scoring vacuous credit must be within [0,100]")
	}

	switch c.Events.Driver {
	case "none", "log":
	case "amqp":
		if c.Events.AMQPURL == "" && c.Vault.Secrets.AMQPURL == "" {
			return fmt.Errorf("events.amqpURL is required for the amqp driver")
		}
	default:
		return fmt.Errorf("unsupported events driver: %s", c.Events.Driver)
	}

	return nil
}

// RequireAPIKey checks that an oracle credential is available. It is kept out
// of Validate so offline commands (migrate, export) work without one.
func (c *Config) RequireAPIKey() error {
	if c.AI.Provider == "gemini" && c.AI.Backend == "vertex" {
		if c.AI.Project == "" {
			return fmt.Errorf("AI project is required for the vertex backend (set SKILLPICK_AI_PROJECT)")
		}
		return nil
	}
	for _, op := range Operations {
		if c.GetOperationConfig(op).APIKey == "" {
			return fmt.Errorf("AI API key is required for operation %s (set SKILLPICK_AI_APIKEY or GEMINI_API_KEY)", op)
		}
	}
	return nil
}
