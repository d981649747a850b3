package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "VIRTUALMOD_"

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are skipped and variables
// that are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		slog.Debug("loaded env file", "path", file)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: VIRTUALMOD_[SECTION]_[KEY] (e.g., VIRTUALMOD_OUTPUT_FORMAT).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.StateDir, "PATHS_STATE_DIR")

	setEnvList(&cfg.Scan.Roots, "SCAN_ROOTS")
	setEnvBool(&cfg.Scan.IncludeTests, "SCAN_INCLUDE_TESTS")
	setEnvList(&cfg.Exclude.Dirs, "EXCLUDE_DIRS")
	setEnvList(&cfg.Exclude.Files, "EXCLUDE_FILES")
	setEnvBoolPtr(&cfg.Exclude.UseGitignore, "EXCLUDE_USE_GITIGNORE")

	setEnvList(&cfg.Rule.IncludeModules, "RULE_INCLUDE_MODULES")
	setEnvList(&cfg.Rule.BarrelFiles, "RULE_BARREL_FILES")
	setEnvString(&cfg.Rule.ProjectMarker, "RULE_PROJECT_MARKER")

	setEnvString(&cfg.Resolver.BaseURL, "RESOLVER_BASE_URL")
	setEnvString(&cfg.Resolver.TSConfig, "RESOLVER_TSCONFIG")

	setEnvString(&cfg.Output.Format, "OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "OUTPUT_PATH")
	setEnvString(&cfg.Output.Color, "OUTPUT_COLOR")
	setEnvBoolPtr(&cfg.Output.FailOnViolation, "OUTPUT_FAIL_ON_VIOLATION")

	setEnvDuration(&cfg.Watch.Debounce, "WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRunsPerSecond, "WATCH_MAX_RUNS_PER_SECOND")
	setEnvInt(&cfg.Watch.QueueCapacity, "WATCH_QUEUE_CAPACITY")

	setEnvBool(&cfg.History.Enabled, "HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "HISTORY_PATH")
	setEnvString(&cfg.History.ProjectKey, "HISTORY_PROJECT_KEY")

	setEnvInt(&cfg.Performance.Workers, "PERFORMANCE_WORKERS")
	setEnvInt(&cfg.Performance.CacheEntries, "PERFORMANCE_CACHE_ENTRIES")

	setEnvBool(&cfg.Observability.Enabled, "OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "OBSERVABILITY_ENABLE_TRACING")
}

func lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(envPrefix + key)
	if ok {
		slog.Debug("applying env override", "key", envPrefix+key, "value", val)
	}
	return val, ok
}

func setEnvString(target *string, key string) {
	if val, ok := lookup(key); ok {
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := lookup(key); ok {
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := lookup(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := lookup(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			*target = d
		}
	}
}
