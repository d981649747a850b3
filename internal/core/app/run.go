package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/data/history"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/shared/observability"
	"virtualmod/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var _ ports.Analyzer = (*App)(nil)

// Analyze scans the configured roots and classifies every file in a fresh
// session. The result replaces the state watch mode patches.
func (a *App) Analyze(ctx context.Context) (*ports.Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Analyze")
	defer span.End()
	started := time.Now()

	files, err := a.ScanDirectories(a.Paths.ScanRoots)
	if err != nil {
		return nil, err
	}
	results, err := a.run(ctx, files)
	if err != nil {
		return nil, err
	}

	a.resultsMu.Lock()
	a.results = make(map[string]fileResult, len(results))
	for _, r := range results {
		a.results[r.path] = r
	}
	a.resultsMu.Unlock()

	report := buildReport(started, results)
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("files", report.Summary.Files),
		attribute.Int("violations", len(report.Findings)),
	)
	observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(started).Seconds())
	a.recordRun(ctx, report)
	a.notify(report)
	return report, nil
}

// AnalyzeFiles classifies only paths. Nothing is persisted and the watch
// state is left untouched.
func (a *App) AnalyzeFiles(ctx context.Context, paths []string) (*ports.Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.AnalyzeFiles", trace.WithAttributes(
		attribute.Int("files", len(paths)),
	))
	defer span.End()
	started := time.Now()

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			if resolved, err := filepath.Abs(p); err == nil {
				p = resolved
			}
		}
		abs = append(abs, filepath.Clean(p))
	}

	results, err := a.run(ctx, util.UniqueSorted(abs))
	if err != nil {
		return nil, err
	}
	observability.AnalysisDuration.WithLabelValues("analyze_files").Observe(time.Since(started).Seconds())
	return buildReport(started, results), nil
}

// Reanalyze updates the last report after changed paths were touched. Edits
// to existing files only re-run those files. Anything that can move a
// boundary or change resolution for other files triggers a full Analyze.
func (a *App) Reanalyze(ctx context.Context, changed []string) (*ports.Report, error) {
	changed = util.UniqueSorted(changed)
	if a.needsFullRun(changed) {
		slog.Info("boundary inputs changed; running full analysis", "changed", len(changed))
		return a.Analyze(ctx)
	}

	ctx, span := observability.Tracer.Start(ctx, "app.Reanalyze", trace.WithAttributes(
		attribute.Int("changed", len(changed)),
	))
	defer span.End()
	started := time.Now()

	targets := make([]string, 0, len(changed))
	for _, p := range changed {
		if a.shouldAnalyze(p) {
			targets = append(targets, p)
		}
	}
	results, err := a.run(ctx, targets)
	if err != nil {
		return nil, err
	}

	a.resultsMu.Lock()
	for _, r := range results {
		a.results[r.path] = r
	}
	all := make([]fileResult, 0, len(a.results))
	for _, r := range a.results {
		all = append(all, r)
	}
	a.resultsMu.Unlock()

	report := buildReport(started, all)
	observability.AnalysisDuration.WithLabelValues("reanalyze").Observe(time.Since(started).Seconds())
	a.recordRun(ctx, report)
	a.notify(report)
	return report, nil
}

func (a *App) needsFullRun(changed []string) bool {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()

	for _, p := range changed {
		base := filepath.Base(p)
		if a.roots.IsBarrel(p) || base == a.roots.ProjectMarker() || base == "tsconfig.json" || p == a.Paths.TSConfig {
			return true
		}
		if !a.shouldAnalyze(p) {
			continue
		}
		// Created or deleted files change what other files resolve to.
		if _, known := a.results[p]; !known {
			return true
		}
		if _, err := a.fs.Stat(p); err != nil {
			return true
		}
	}
	return false
}

func (a *App) run(ctx context.Context, files []string) ([]fileResult, error) {
	sess, err := a.newSession()
	if err != nil {
		return nil, err
	}

	workers := a.Config.Performance.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = sess.analyzeFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func buildReport(started time.Time, results []fileResult) *ports.Report {
	report := &ports.Report{
		RunID:      uuid.NewString(),
		StartedAt:  started.UTC(),
		Duration:   time.Since(started),
		Findings:   []ports.Finding{},
		FileErrors: []ports.FileError{},
		Summary: ports.Summary{
			Files:  len(results),
			ByKind: make(map[classify.Kind]int, len(classify.Kinds())),
		},
	}
	for _, kind := range classify.Kinds() {
		report.Summary.ByKind[kind] = 0
	}

	for _, r := range results {
		if r.err != nil {
			report.FileErrors = append(report.FileErrors, *r.err)
			continue
		}
		report.Summary.Edges += r.edges
		report.Summary.External += r.external
		for _, f := range r.findings {
			report.Findings = append(report.Findings, f)
			report.Summary.ByKind[f.Violation.Kind]++
		}
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Specifier < b.Specifier
	})
	sort.Slice(report.FileErrors, func(i, j int) bool {
		return report.FileErrors[i].Path < report.FileErrors[j].Path
	})
	return report
}

// recordRun publishes run metrics and, when a history store is wired,
// persists a snapshot. History failures are logged, not returned.
func (a *App) recordRun(ctx context.Context, report *ports.Report) {
	for _, kind := range classify.Kinds() {
		observability.LastRunViolationsByKind.WithLabelValues(string(kind)).Set(float64(report.Summary.ByKind[kind]))
	}
	observability.LastRunViolations.Set(float64(len(report.Findings)))

	if a.history == nil {
		return
	}
	commit, commitTS := history.GitHead(ctx, a.Paths.BaseDir)
	snapshot := history.Snapshot{
		RunID:           report.RunID,
		Timestamp:       report.StartedAt,
		CommitHash:      commit,
		CommitTimestamp: commitTS,
		Duration:        report.Duration,
		FileCount:       report.Summary.Files,
		EdgeCount:       report.Summary.Edges,
		ExternalCount:   report.Summary.External,
		IndexImports:    report.Summary.ByKind[classify.KindIndexImport],
		ParentImports:   report.Summary.ByKind[classify.KindParentModuleImport],
		PrivateImports:  report.Summary.ByKind[classify.KindPrivateModuleImport],
		FileErrorCount:  len(report.FileErrors),
	}
	projectKey := a.Config.History.ProjectKey
	if _, err := a.history.SaveSnapshot(projectKey, snapshot); err != nil {
		slog.Warn("failed to save history snapshot", "run_id", report.RunID, "error", err)
		return
	}
	if retain := a.Config.History.Retain; retain > 0 {
		if removed, err := a.history.Prune(projectKey, retain); err != nil {
			slog.Warn("failed to prune history", "error", err)
		} else if removed > 0 {
			slog.Debug("pruned history snapshots", "removed", removed)
		}
	}
}
