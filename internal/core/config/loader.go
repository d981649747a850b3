package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"virtualmod/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML content and runs the same default, override and
// validation steps as Load.
func Parse(content string) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, errors.New(errors.CodeValidationError, "unknown config keys: "+strings.Join(keys, ", "))
	}
	return finish(&cfg)
}

// Default returns the configuration used when no config file exists.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	normalize(cfg)
	ApplyEnvOverrides(cfg)
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}

	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"."}
	}
	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "dist", "build", "coverage"}
	}

	if len(cfg.Rule.BarrelFiles) == 0 {
		cfg.Rule.BarrelFiles = []string{"index.ts"}
	}
	if strings.TrimSpace(cfg.Rule.ProjectMarker) == "" {
		cfg.Rule.ProjectMarker = "package.json"
	}

	if len(cfg.Resolver.Extensions) == 0 {
		cfg.Resolver.Extensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if strings.TrimSpace(cfg.Output.Color) == "" {
		cfg.Output.Color = "auto"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerSecond == 0 {
		cfg.Watch.MaxRunsPerSecond = 2
	}
	if cfg.Watch.QueueCapacity == 0 {
		cfg.Watch.QueueCapacity = 1024
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/database/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	if cfg.Performance.Workers == 0 {
		cfg.Performance.Workers = runtime.NumCPU()
	}
	if cfg.Performance.CacheEntries == 0 {
		cfg.Performance.CacheEntries = 4096
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}

func normalize(cfg *Config) {
	cfg.Scan.Roots = trimAll(cfg.Scan.Roots)
	cfg.Exclude.Dirs = trimAll(cfg.Exclude.Dirs)
	cfg.Exclude.Files = trimAll(cfg.Exclude.Files)
	cfg.Rule.IncludeModules = trimAll(cfg.Rule.IncludeModules)
	cfg.Rule.BarrelFiles = trimAll(cfg.Rule.BarrelFiles)
	cfg.Rule.ProjectMarker = strings.TrimSpace(cfg.Rule.ProjectMarker)
	cfg.Resolver.BaseURL = strings.TrimSpace(cfg.Resolver.BaseURL)
	cfg.Resolver.TSConfig = strings.TrimSpace(cfg.Resolver.TSConfig)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Color = strings.ToLower(strings.TrimSpace(cfg.Output.Color))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.History.ProjectKey = strings.TrimSpace(cfg.History.ProjectKey)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	exts := make([]string, 0, len(cfg.Resolver.Extensions))
	for _, ext := range trimAll(cfg.Resolver.Extensions) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, strings.ToLower(ext))
	}
	cfg.Resolver.Extensions = exts
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
