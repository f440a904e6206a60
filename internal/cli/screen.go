package cli

import (
	"context"
	"path/filepath"
	"strings"

	"skillpick/internal/common"
	"skillpick/internal/jd"
	"skillpick/internal/resume"
	"skillpick/internal/screening"
	"skillpick/internal/types"

	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen [job-description-file] [resume-file]",
	Short: "Screen a resume against a job description",
	Long: `Analyze a job description and score a resume against it, the same way
candidate registration does, without creating a process or a candidate.
Both files may be PDF, DOCX or plain text.

The result shows the match score, the accept or reject decision under the
configured screening threshold, and the overlapping skills.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&screenConfig),
	RunE:    runScreen,
}

var (
	screenConfig  common.CommandConfig
	screenTitle   string
	screenContext string
)

func init() {
	screenCmd.Flags().StringVarP(&screenConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	screenCmd.Flags().StringVar(&screenConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	screenCmd.Flags().StringVar(&screenTitle, "title", "", "Job title (default: job description file name)")
	screenCmd.Flags().StringVar(&screenContext, "context", "", "Extra context for the job description analysis")
	registerFormatCompletion(screenCmd)
}

type screenInput struct {
	process    types.Process
	resumeText string
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	svc, release, err := newOracle(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer release()

	analyzer := jd.NewAnalyzer(svc.Client(), logger)
	screener := screening.NewScreener(svc.Client(), cfg.Screening, logger)

	createInput := func(files []common.InputFile) (screenInput, error) {
		description, err := resume.ExtractText(resume.File{Name: files[0].Name, Data: files[0].Data})
		if err != nil {
			return screenInput{}, err
		}
		resumeText, err := resume.ExtractText(resume.File{Name: files[1].Name, Data: files[1].Data})
		if err != nil {
			return screenInput{}, err
		}

		title := strings.TrimSpace(screenTitle)
		if title == "" {
			title = strings.TrimSuffix(files[0].Name, filepath.Ext(files[0].Name))
		}
		return screenInput{
			process: types.Process{
				Title:        title,
				Description:  description,
				ExtraContext: strings.TrimSpace(screenContext),
			},
			resumeText: resumeText,
		}, nil
	}

	operation := func(ctx context.Context, in screenInput) (*screening.Result, error) {
		analysis, err := analyzer.Analyze(ctx, in.process.Title, in.process.Description, in.process.ExtraContext)
		if err != nil {
			return nil, err
		}
		in.process.JDAnalysis = analysis
		return screener.Screen(ctx, &in.process, in.resumeText)
	}

	logDetails := func(in screenInput, cmdConfig common.CommandConfig) {
		logger.Info("Screening resume",
			"title", in.process.Title,
			"job_description", args[0],
			"resume", args[1],
			"resume_chars", len(in.resumeText),
			"threshold", cfg.Screening.Threshold,
			"format", cmdConfig.OutputFormat)
	}

	return common.RunFileCommand(ctx, logger, screenConfig, args, createInput, operation, logDetails)
}
