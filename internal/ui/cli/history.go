package cli

import (
	"fmt"
	"virtualmod/internal/data/history"
	"virtualmod/internal/shared/util"
	"virtualmod/internal/ui/report"

	"github.com/spf13/cobra"
)

type historyOptions struct {
	since      string
	window     string
	projectKey string
	tsvPath    string
	jsonPath   string
}

func newHistoryCommand(global *globalOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show violation trends from stored run snapshots",
		Long: `Reads the snapshots written by check and watch when [history] is enabled
and prints per-run counts, deltas and a moving average of violations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.since, "since", "", "Only runs at/after this time (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&opts.window, "window", "24h", "Moving-average window")
	flags.StringVar(&opts.projectKey, "project", "", "Project key (default from config)")
	flags.StringVar(&opts.tsvPath, "tsv", "", "Also write the trend as TSV to this path")
	flags.StringVar(&opts.jsonPath, "json", "", "Also write the trend as JSON to this path")

	return cmd
}

func runHistory(cmd *cobra.Command, global *globalOptions, opts *historyOptions) error {
	closeLogs := configureLogging(false, global.verbose, "", cmd.ErrOrStderr())
	defer closeLogs()

	env, err := loadRuntime(global)
	if err != nil {
		return err
	}
	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	window, err := parseHistoryWindow(opts.window)
	if err != nil {
		return err
	}
	projectKey := env.cfg.History.ProjectKey
	if opts.projectKey != "" {
		projectKey = opts.projectKey
	}

	store, err := history.OpenWithOptions(env.paths.HistoryDB, history.Options{BusyTimeout: env.cfg.History.BusyTimeout})
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	snapshots, err := store.LoadSnapshots(projectKey, since)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(snapshots) == 0 {
		fmt.Fprintln(out, "History: no snapshots matched the requested time window.")
		return nil
	}

	trend, err := history.BuildTrendReport(projectKey, snapshots, window)
	if err != nil {
		return err
	}
	fmt.Fprint(out, report.RenderTrendText(trend))

	if opts.tsvPath != "" {
		tsv, err := report.RenderTrendTSV(trend)
		if err != nil {
			return fmt.Errorf("render trend TSV: %w", err)
		}
		if err := util.WriteFileWithDirs(opts.tsvPath, tsv, 0o644); err != nil {
			return fmt.Errorf("write trend TSV %q: %w", opts.tsvPath, err)
		}
	}
	if opts.jsonPath != "" {
		raw, err := report.RenderTrendJSON(trend)
		if err != nil {
			return fmt.Errorf("render trend JSON: %w", err)
		}
		if err := util.WriteFileWithDirs(opts.jsonPath, raw, 0o644); err != nil {
			return fmt.Errorf("write trend JSON %q: %w", opts.jsonPath, err)
		}
	}
	return nil
}
