package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	coreapp "virtualmod/internal/core/app"
	"virtualmod/internal/core/config"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/core/watcher"
	"virtualmod/internal/data/history"
	"virtualmod/internal/data/queue"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	ui           bool
	includeTests bool
	color        string
}

func newWatchCommand(global *globalOptions, factory analysisFactory) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-check the project whenever files change",
		Long: `Runs a full analysis, then watches the scan roots. Edits to existing files
re-check only those files; barrel, package.json and tsconfig changes re-check
everything. Runs are debounced and rate limited (see [watch] in the config).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, global, opts, args, factory)
		},
	}

	cmd.Flags().BoolVar(&opts.ui, "ui", false, "Show an interactive terminal UI")
	cmd.Flags().BoolVar(&opts.includeTests, "include-tests", false, "Analyze test files (*.test.ts, *.spec.ts)")
	cmd.Flags().StringVar(&opts.color, "color", "", "Colorize text output: auto, always, never")

	return cmd
}

func runWatch(cmd *cobra.Command, global *globalOptions, opts *watchOptions, args []string, factory analysisFactory) error {
	env, err := loadRuntime(global)
	if err != nil {
		return err
	}
	closeLogs := configureLogging(opts.ui, global.verbose, env.paths.StateDir, cmd.ErrOrStderr())
	defer closeLogs()

	if cmd.Flags().Changed("include-tests") {
		env.cfg.Scan.IncludeTests = opts.includeTests
	}
	if cmd.Flags().Changed("color") {
		env.cfg.Output.Color = opts.color
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

	report, err := analysis.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("initial analysis: %w", err)
	}

	changes := queue.NewMemoryQueue(env.cfg.Watch.QueueCapacity)
	w, err := newFileWatcher(env, analysis, changes)
	if err != nil {
		return err
	}
	defer w.Close()

	consumed := make(chan error, 1)
	go func() { consumed <- analysis.ConsumeChanges(ctx, changes) }()
	defer func() {
		_ = changes.Close()
		if err := <-consumed; err != nil {
			slog.Error("change consumer stopped", "error", err)
		}
	}()

	if env.cfgPath != "" && env.cfg.Watch.ReloadConfig {
		reloader := config.NewWatcher(env.cfgPath, func(next *config.Config) {
			applyWatchSettings(w, next)
			slog.Info("watch settings updated", "debounce", next.Watch.Debounce, "max_runs_per_second", next.Watch.MaxRunsPerSecond)
		})
		if err := reloader.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "error", err)
		} else {
			defer reloader.Stop()
		}
	}

	if opts.ui {
		return runUI(ctx, analysis, report, loadTrend(env))
	}

	out := cmd.OutOrStdout()
	analysis.SetUpdateHandler(func(r *ports.Report) {
		printWatchReport(env, r, out)
	})
	printWatchReport(env, report, out)

	<-ctx.Done()
	slog.Info("watch stopped")
	return nil
}

// newFileWatcher watches the scan roots and queues changed paths for the
// consumer. Language filters follow the parser registry.
func newFileWatcher(env *runtimeEnv, analysis *coreapp.App, changes ports.ChangeQueue) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(env.cfg.Watch.Debounce, env.cfg.Exclude.Dirs, env.cfg.Exclude.Files, coreapp.QueueChanges(changes))
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	codeParser := analysis.CodeParser()
	testSuffixes := codeParser.SupportedTestFileSuffixes()
	if env.cfg.Scan.IncludeTests {
		testSuffixes = nil
	}
	filenames := []string{env.cfg.Rule.ProjectMarker, "tsconfig.json"}
	if env.paths.TSConfig != "" {
		filenames = append(filenames, filepath.Base(env.paths.TSConfig))
	}
	w.SetLanguageFilters(codeParser.SupportedExtensions(), filenames, testSuffixes)
	applyWatchSettings(w, env.cfg)

	if err := w.Watch(env.paths.ScanRoots); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch roots: %w", err)
	}
	slog.Info("watching for changes", "roots", env.paths.ScanRoots)
	return w, nil
}

func applyWatchSettings(w *watcher.Watcher, cfg *config.Config) {
	w.SetDebounce(cfg.Watch.Debounce)
	w.SetRateLimit(cfg.Watch.MaxRunsPerSecond)
}

func printWatchReport(env *runtimeEnv, report *ports.Report, out io.Writer) {
	fmt.Fprintf(out, "\n[%s] run %s\n", time.Now().Format("15:04:05"), report.RunID)
	if err := writeReport(env, report, "text", "", out); err != nil {
		slog.Error("failed to print report", "error", err)
	}
}

// loadTrend reads the stored history for the UI overlay. Missing history is
// not an error.
func loadTrend(env *runtimeEnv) *history.TrendReport {
	if !env.cfg.History.Enabled {
		return nil
	}
	store, err := history.OpenWithOptions(env.paths.HistoryDB, history.Options{BusyTimeout: env.cfg.History.BusyTimeout})
	if err != nil {
		slog.Warn("trend overlay unavailable", "error", err)
		return nil
	}
	defer store.Close()

	snapshots, err := store.LoadSnapshots(env.cfg.History.ProjectKey, time.Time{})
	if err != nil || len(snapshots) == 0 {
		return nil
	}
	trend, err := history.BuildTrendReport(env.cfg.History.ProjectKey, snapshots, 24*time.Hour)
	if err != nil {
		return nil
	}
	return &trend
}
