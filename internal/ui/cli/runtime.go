package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"virtualmod/internal/core/config"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/shared/util"
	"virtualmod/internal/ui/report/formats"
)

const defaultConfigName = config.DefaultFile

// runtimeEnv is the loaded configuration every command starts from.
type runtimeEnv struct {
	cfg     *config.Config
	cfgPath string
	paths   config.ResolvedPaths
}

func loadRuntime(opts *globalOptions) (*runtimeEnv, error) {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		return nil, err
	}

	// Relative config paths are anchored at the config file, or the working
	// directory when running on defaults.
	base := cwd
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, fmt.Errorf("resolve runtime paths: %w", err)
	}
	return &runtimeEnv{cfg: cfg, cfgPath: cfgPath, paths: paths}, nil
}

// loadConfig reads an explicit path, else ./virtualmod.toml when present,
// else the built-in defaults.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, "", err
		}
		cfg, err := config.Load(abs)
		if err != nil {
			return nil, "", fmt.Errorf("load config %q: %w", path, err)
		}
		return cfg, abs, nil
	}

	candidate := filepath.Join(cwd, defaultConfigName)
	cfg, err := config.Load(candidate)
	if err == nil {
		return cfg, candidate, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("load config %q: %w", candidate, err)
	}

	slog.Debug("no config file found; using defaults", "looked_for", candidate)
	cfg, err = config.Default()
	if err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// overrideScanRoots replaces the configured roots with positional args,
// resolved against the working directory.
func overrideScanRoots(env *runtimeEnv, args []string) error {
	if len(args) == 0 {
		return nil
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		roots = append(roots, abs)
	}
	env.paths.ScanRoots = util.UniqueSorted(roots)
	return nil
}

func configureLogging(uiMode, verbose bool, stateDir string, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath(stateDir)
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath(stateDir string) string {
	if strings.TrimSpace(stateDir) != "" {
		return filepath.Join(stateDir, "virtualmod.log")
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "virtualmod", "virtualmod.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "virtualmod", "virtualmod.log")
	}

	return "virtualmod.log"
}

// writeReport renders report to path, or to stdout when path is empty.
func writeReport(env *runtimeEnv, report *ports.Report, format, path string, stdout io.Writer) error {
	if path == "" {
		reporter, err := formats.New(format, stdout, formats.Options{BaseDir: env.paths.BaseDir, Color: env.cfg.Output.Color})
		if err != nil {
			return err
		}
		return reporter.Report(stdout, report)
	}

	var buf strings.Builder
	reporter, err := formats.New(format, &buf, formats.Options{BaseDir: env.paths.BaseDir, Color: "never"})
	if err != nil {
		return err
	}
	if err := reporter.Report(&buf, report); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	slog.Info("report written", "path", path, "format", format)
	return nil
}

// exitCodeFor maps a finished report to the process exit code. Aborted
// files always fail the run; violations fail it unless disabled.
func exitCodeFor(report *ports.Report, failOnViolation bool) int {
	if len(report.FileErrors) > 0 {
		return exitViolations
	}
	if failOnViolation && report.HasViolations() {
		return exitViolations
	}
	return exitOK
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("--window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--window must be > 0, got %q", value)
	}
	return d, nil
}
