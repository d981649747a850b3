package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the config's filesystem locations made absolute.
type ResolvedPaths struct {
	BaseDir        string
	StateDir       string
	ScanRoots      []string
	IncludeModules []string
	BaseURL        string
	TSConfig       string
	HistoryDB      string
	OutputPath     string
}

// ResolvePaths anchors every relative path in cfg at baseDir, normally the
// directory holding the config file.
func ResolvePaths(cfg *Config, baseDir string) (ResolvedPaths, error) {
	if strings.TrimSpace(baseDir) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return ResolvedPaths{}, err
	}

	resolved := ResolvedPaths{
		BaseDir:   base,
		StateDir:  ResolveRelative(base, cfg.Paths.StateDir),
		HistoryDB: ResolveRelative(base, cfg.History.Path),
	}
	for _, root := range cfg.Scan.Roots {
		resolved.ScanRoots = append(resolved.ScanRoots, ResolveRelative(base, root))
	}
	for _, barrel := range cfg.Rule.IncludeModules {
		resolved.IncludeModules = append(resolved.IncludeModules, ResolveRelative(base, barrel))
	}
	if cfg.Resolver.BaseURL != "" {
		resolved.BaseURL = ResolveRelative(base, cfg.Resolver.BaseURL)
	}
	if cfg.Resolver.TSConfig != "" {
		resolved.TSConfig = ResolveRelative(base, cfg.Resolver.TSConfig)
	}
	if cfg.Output.Path != "" {
		resolved.OutputPath = ResolveRelative(base, cfg.Output.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
