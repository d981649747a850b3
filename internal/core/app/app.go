package app

import (
	"fmt"
	"sync"
	"virtualmod/internal/core/config"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/data/history"
	"virtualmod/internal/engine/boundary"
	"virtualmod/internal/engine/parser"
	"virtualmod/internal/engine/resolver"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// App wires the parser, resolver and boundary classifier into analysis
// sessions over the configured scan roots.
type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	fs           afero.Fs
	codeParser   ports.CodeParser
	specResolver ports.SpecifierResolver
	roots        *boundary.Resolver
	history      ports.HistoryStore
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob

	// results holds the latest per-file outcome so watch mode can patch a
	// report instead of rescanning everything.
	resultsMu sync.RWMutex
	results   map[string]fileResult

	updateMu sync.RWMutex
	onUpdate func(*ports.Report)
}

// Dependencies lets callers swap the collaborators New would build.
type Dependencies struct {
	FS         afero.Fs
	CodeParser ports.CodeParser
	Resolver   ports.SpecifierResolver
	History    ports.HistoryStore
}

// New builds an App with the tree-sitter parser and, when history is
// enabled, the sqlite snapshot store.
func New(cfg *config.Config, paths config.ResolvedPaths) (*App, error) {
	registry, err := ParserRegistry(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{CodeParser: parser.NewParser(loader)}
	if cfg.History.Enabled {
		store, err := history.OpenWithOptions(paths.HistoryDB, history.Options{BusyTimeout: cfg.History.BusyTimeout})
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		deps.History = store
	}
	return NewWithDependencies(cfg, paths, deps)
}

func NewWithDependencies(cfg *config.Config, paths config.ResolvedPaths, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.CodeParser == nil {
		return nil, fmt.Errorf("code parser dependency is required")
	}
	fs := deps.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	specResolver := deps.Resolver
	if specResolver == nil {
		r, err := resolver.New(fs, resolver.Options{
			Extensions: cfg.Resolver.Extensions,
			BaseURL:    paths.BaseURL,
			Paths:      cfg.Resolver.Paths,
			TSConfig:   paths.TSConfig,
		})
		if err != nil {
			return nil, err
		}
		specResolver = r
	}

	excludeDirs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}

	roots := boundary.NewResolver(fs, boundary.Options{
		ProjectMarker:  cfg.Rule.ProjectMarker,
		BarrelFiles:    cfg.Rule.BarrelFiles,
		IncludeModules: paths.IncludeModules,
	})

	return &App{
		Config:       cfg,
		Paths:        paths,
		fs:           fs,
		codeParser:   deps.CodeParser,
		specResolver: specResolver,
		roots:        roots,
		history:      deps.History,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		results:      make(map[string]fileResult),
	}, nil
}

// ParserRegistry applies the config's language overrides to the default
// JS/TS registry.
func ParserRegistry(cfg *config.Config) (map[string]parser.LanguageSpec, error) {
	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for lang, languageCfg := range cfg.Languages {
		overrides[lang] = parser.LanguageOverride{
			Enabled:    languageCfg.Enabled,
			Extensions: append([]string(nil), languageCfg.Extensions...),
		}
	}
	return parser.BuildLanguageRegistry(overrides)
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// CodeParser exposes the parser so the watcher can share its language filters.
func (a *App) CodeParser() ports.CodeParser {
	return a.codeParser
}

// SetUpdateHandler registers a callback run after every completed session.
func (a *App) SetUpdateHandler(handler func(*ports.Report)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) notify(report *ports.Report) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(report)
	}
}

// Close releases the history store when it owns one.
func (a *App) Close() error {
	if closer, ok := a.history.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
