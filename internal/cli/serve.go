package cli

import (
	"context"
	"time"

	"skillpick/internal/config"
	"skillpick/internal/events"
	"skillpick/internal/observability"
	"skillpick/internal/process"
	"skillpick/internal/server"
	"skillpick/internal/store"

	"github.com/spf13/cobra"
)

// observabilityShutdownTimeout bounds the final flush of traces and metrics
const observabilityShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SkillPick REST API",
	Long: `Start an HTTP server exposing the hiring pipeline.

Recruiter endpoints (API key required when server.apiKeys is set):
- POST /api/processes: Create a hiring process from a job description
- GET  /api/processes/{id}: Read a process
- GET  /api/analytics/process/{id}: Candidate leaderboard and averages
- GET  /api/analytics/process/{id}/export.xlsx: Analytics workbook

Candidate endpoints:
- GET  /api/processes/public/{token}: Public view of a process
- POST /api/candidates/register/{token}: Register with a resume upload
- POST /api/candidates/{candidate_id}/submit: Submit test answers
- GET  /api/candidates/{candidate_id}/result: Read the scorecard

- GET  /health: Health check with oracle and rate limiting status

TLS is enabled when both --cert-file and --key-file are set. Certificate
files are reloaded when they change on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.ServerConfig) {
	overrides := map[string]*string{
		"port":      &cfg.Port,
		"host":      &cfg.Host,
		"cert-file": &cfg.TLSCertFile,
		"key-file":  &cfg.TLSKeyFile,
	}
	for flag, target := range overrides {
		if cmd.Flags().Changed(flag) {
			*target, _ = cmd.Flags().GetString(flag)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, &cfg.Server)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()
	metrics := om.GetMetrics()

	svc, releaseOracle, err := newOracle(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer releaseOracle()

	s, err := store.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.LogError(err, "Failed to close store")
		}
	}()

	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	pipeline := process.New(cfg, process.Deps{
		Store:     s,
		Client:    svc.Client(),
		Publisher: publisher,
		Recorder:  metrics,
	}, logger)

	srv := server.New(cfg.Server, Version, server.Deps{
		Pipeline:      pipeline,
		Oracle:        svc,
		Observability: om,
	}, logger)
	return srv.Run(ctx)
}
