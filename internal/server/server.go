// Package server exposes the hiring pipeline over HTTP.
package server

import (
	"context"
	"io"
	"time"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/evaluation"
	"skillpick/internal/observability"
	"skillpick/internal/process"
	"skillpick/internal/resume"
	"skillpick/internal/types"
	"skillpick/internal/utils"
)

// Pipeline is what the HTTP layer needs from the process registry
type Pipeline interface {
	CreateProcess(ctx context.Context, in process.CreateProcessInput) (*types.Process, error)
	GetProcess(ctx context.Context, id string) (*types.Process, error)
	GetPublicView(ctx context.Context, token string) (*types.PublicView, error)
	Register(ctx context.Context, token, name, email string, file resume.File) (*types.RegistrationResult, error)
	Submit(ctx context.Context, candidateID string, in evaluation.SubmissionInput) (*types.Scorecard, error)
	Result(ctx context.Context, candidateID string) (*types.Scorecard, error)
	Analytics(ctx context.Context, processID string) (*types.ProcessAnalytics, error)
	ExportXLSX(ctx context.Context, processID string, w io.Writer) error
}

// OracleStatus reports oracle availability for the health endpoint
type OracleStatus interface {
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Default body limits applied when the configuration leaves them at zero
const (
	defaultMaxBodyBytes   = 1 << 20
	defaultMaxUploadBytes = utils.MaxDocumentBytes
	healthCheckTimeout    = 5 * time.Second
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// TLS is served when both files are set
	CertFile string
	KeyFile  string

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limits
	MaxBodyBytes   int64
	MaxUploadBytes int64

	CORSOrigins []string

	// API Authentication, recruiter routes only
	APIKeys map[string]bool

	// Rate limiting
	RateLimit   config.RateLimitConfig
	RateLimiter *RateLimiter

	pipeline      Pipeline
	oracle        OracleStatus
	observability *observability.ObservabilityManager
	metrics       *observability.Metrics
	logger        *errors.Logger
}

// Deps are the collaborators a Server routes requests to
type Deps struct {
	Pipeline      Pipeline
	Oracle        OracleStatus
	Observability *observability.ObservabilityManager
}

// New creates a Server from the server section of the configuration
func New(cfg config.ServerConfig, version string, deps Deps, logger *errors.Logger) *Server {
	apiKeys := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		CertFile:       cfg.TLSCertFile,
		KeyFile:        cfg.TLSKeyFile,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxBodyBytes:   maxBody,
		MaxUploadBytes: maxUpload,
		CORSOrigins:    cfg.CORSOrigins,
		APIKeys:        apiKeys,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		pipeline:       deps.Pipeline,
		oracle:         deps.Oracle,
		observability:  deps.Observability,
		logger:         logger,
	}
	if deps.Observability != nil {
		s.metrics = deps.Observability.GetMetrics()
	}
	return s
}

// tlsEnabled reports whether both certificate files are configured
func (s *Server) tlsEnabled() bool {
	return s.CertFile != "" && s.KeyFile != ""
}
