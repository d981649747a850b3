package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"virtualmod/internal/core/ports"

	"github.com/spf13/cobra"
)

type checkOptions struct {
	files           []string
	format          string
	output          string
	color           string
	includeTests    bool
	failOnViolation bool
}

func newCheckCommand(global *globalOptions, factory analysisFactory) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Analyze the project once and report boundary violations",
		Long: `Scans the configured roots (or the given paths) and classifies every import.

Exit status is 0 when clean, 1 when violations were found or a file could not
be analyzed, and 2 on configuration or runtime errors.

Examples:
  virtualmod check                       # scan roots from virtualmod.toml
  virtualmod check src/                  # scan only src/
  virtualmod check --file src/a/view.ts  # classify a single file
  virtualmod check --format sarif -o virtualmod.sarif`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, global, opts, args, factory)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.files, "file", "f", nil, "Classify only these files (repeatable)")
	flags.StringVar(&opts.format, "format", "", "Output format: text, json, sarif (default from config)")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the report to this path instead of stdout")
	flags.StringVar(&opts.color, "color", "", "Colorize text output: auto, always, never")
	flags.BoolVar(&opts.includeTests, "include-tests", false, "Analyze test files (*.test.ts, *.spec.ts)")
	flags.BoolVar(&opts.failOnViolation, "fail-on-violation", true, "Exit 1 when violations are found")

	return cmd
}

func runCheck(cmd *cobra.Command, global *globalOptions, opts *checkOptions, args []string, factory analysisFactory) error {
	closeLogs := configureLogging(false, global.verbose, "", cmd.ErrOrStderr())
	defer closeLogs()

	env, err := loadRuntime(global)
	if err != nil {
		return err
	}
	applyCheckFlags(cmd, env, opts)
	if len(opts.files) > 0 && len(args) > 0 {
		return fmt.Errorf("--file cannot be combined with positional paths")
	}
	if err := overrideScanRoots(env, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analysis, err := initializeAnalysis(env, factory)
	if err != nil {
		return err
	}
	defer analysis.Close()

	stopObservability, err := startObservability(ctx, env.cfg, analysis)
	if err != nil {
		return err
	}
	defer stopObservability()

	var report *ports.Report
	if len(opts.files) > 0 {
		report, err = analysis.AnalyzeFiles(ctx, opts.files)
	} else {
		report, err = analysis.Analyze(ctx)
	}
	if err != nil {
		return err
	}

	if err := writeReport(env, report, env.cfg.Output.Format, env.paths.OutputPath, cmd.OutOrStdout()); err != nil {
		return err
	}

	if code := exitCodeFor(report, env.cfg.FailOnViolation()); code != exitOK {
		return &exitCodeError{code: code}
	}
	return nil
}

// applyCheckFlags lets explicitly set flags win over the config file.
func applyCheckFlags(cmd *cobra.Command, env *runtimeEnv, opts *checkOptions) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		env.cfg.Output.Format = opts.format
	}
	if flags.Changed("output") {
		env.paths.OutputPath = opts.output
	}
	if flags.Changed("color") {
		env.cfg.Output.Color = opts.color
	}
	if flags.Changed("include-tests") {
		env.cfg.Scan.IncludeTests = opts.includeTests
	}
	if flags.Changed("fail-on-violation") {
		fail := opts.failOnViolation
		env.cfg.Output.FailOnViolation = &fail
	}
}
