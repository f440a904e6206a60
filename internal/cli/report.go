package cli

import (
	"bytes"
	"context"

	"skillpick/internal/analytics"
	"skillpick/internal/common"
	"skillpick/internal/evaluation"
	"skillpick/internal/formatters"
	"skillpick/internal/store"
	"skillpick/internal/types"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics [process-id]",
	Short: "Show the candidate leaderboard of a process",
	Long: `Print the analytics of a hiring process: candidate counts, average
scores and every candidate ordered by overall score.

Reads the configured database; the memory driver is not supported.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&analyticsConfig),
	RunE:    runAnalytics,
}

var resultCmd = &cobra.Command{
	Use:   "result [candidate-id]",
	Short: "Show the scorecard of an evaluated candidate",
	Long: `Print the scorecard of a candidate whose test has been evaluated:
section scores, overall score, verdict, strengths, weaknesses and per-item
feedback.

Reads the configured database; the memory driver is not supported.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&resultConfig),
	RunE:    runResult,
}

var exportCmd = &cobra.Command{
	Use:   "export [process-id]",
	Short: "Export the analytics workbook of a process",
	Long: `Write the analytics of a hiring process as an XLSX workbook with an
overview sheet and a candidates sheet.

Reads the configured database; the memory driver is not supported.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	analyticsConfig common.CommandConfig
	resultConfig    common.CommandConfig
	exportOutput    string
)

func init() {
	analyticsCmd.Flags().StringVarP(&analyticsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyticsCmd.Flags().StringVar(&analyticsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	registerFormatCompletion(analyticsCmd)

	resultCmd.Flags().StringVarP(&resultConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	resultCmd.Flags().StringVar(&resultConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	registerFormatCompletion(resultCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output .xlsx file (default: process-<id>.xlsx)")
}

// resolveFormat applies the default output format and rejects unknown ones
func resolveFormat(cmdConfig *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		format, err := common.ResolveOutputFormat(cmdConfig.OutputFormat, formatters.GlobalRegistry.GetSupportedFormats())
		if err != nil {
			return err
		}
		cmdConfig.OutputFormat = format
		return nil
	}
}

func registerFormatCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	return common.RunStoreCommand(ctx, logger, cfg.Database, analyticsConfig,
		func(ctx context.Context, s store.Store) (*types.ProcessAnalytics, error) {
			return analytics.NewAggregator(s, logger).Analytics(ctx, args[0])
		})
}

func runResult(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	return common.RunStoreCommand(ctx, logger, cfg.Database, resultConfig,
		func(ctx context.Context, s store.Store) (*types.Scorecard, error) {
			return evaluation.LoadResult(ctx, s, args[0])
		})
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	processID := args[0]
	output := exportOutput
	if output == "" {
		output = "process-" + processID + ".xlsx"
	}

	fileProcessor := common.NewFileProcessor(logger)
	if err := fileProcessor.ValidateOutputFile(output, ".xlsx"); err != nil {
		return err
	}

	s, err := common.OpenPersistentStore(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	var buf bytes.Buffer
	if err := analytics.NewAggregator(s, logger).ExportXLSX(ctx, processID, &buf); err != nil {
		return err
	}
	if err := fileProcessor.WriteBytes(output, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("Analytics workbook written", "process_id", processID, "file", output, "bytes", buf.Len())
	return nil
}
