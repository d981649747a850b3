package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"virtualmod/internal/core/config"
	"virtualmod/internal/core/errors"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/data/history"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/engine/parser"
	"virtualmod/internal/shared/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureFiles = map[string]string{
	"/p/package.json":              `{"name": "p"}`,
	"/p/shared/index.ts":           "export * from './helpers';\n",
	"/p/shared/helpers.ts":         "export const h = 1;\n",
	"/p/shared/internal/index.ts":  "export * from './util';\n",
	"/p/shared/internal/util.ts":   "export const u = 1;\n",
	"/p/feature/index.ts":          "export * from './view';\n",
	"/p/feature/view.ts":           "import { h } from '../shared';\nimport { u } from '../shared/internal/util';\nimport fs from 'node:fs';\nexport { v } from './index';\n",
	"/p/feature/sub/index.ts":      "export {};\n",
	"/p/feature/sub/widget.ts":     "import { v } from '../view';\n",
	"/p/feature/view.test.ts":      "import { v } from './index';\n",
	"/p/broken/bad.ts":             "import { u } from '../shared/internal/util';\nimport x from './missing';\n",
	"/p/node_modules/dep/index.ts": "import { u } from '../../shared/internal/util';\n",
	"/p/generated/skip.ts":         "import { u } from '../shared/internal/util';\n",
	"/p/.gitignore":                "generated/\n",
	"/q/orphan.ts":                 "import { a } from './a';\n",
	"/q/a.ts":                      "export const a = 1;\n",
}

func writeFixture(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func newTestApp(t *testing.T, fs afero.Fs, store ports.HistoryStore) *App {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Performance.Workers = 2

	loader, err := parser.NewGrammarLoader()
	require.NoError(t, err)

	a, err := NewWithDependencies(cfg, config.ResolvedPaths{
		BaseDir:   "/p",
		ScanRoots: []string{"/p", "/q"},
	}, Dependencies{
		FS:         fs,
		CodeParser: parser.NewParser(loader),
		History:    store,
	})
	require.NoError(t, err)
	return a
}

func findingKinds(report *ports.Report) map[string]classify.Kind {
	out := make(map[string]classify.Kind, len(report.Findings))
	for _, f := range report.Findings {
		out[f.File+":"+f.Specifier] = f.Violation.Kind
	}
	return out
}

func TestNewWithDependencies_RequiresCodeParser(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	_, err = NewWithDependencies(cfg, config.ResolvedPaths{}, Dependencies{})
	assert.Error(t, err)

	_, err = NewWithDependencies(nil, config.ResolvedPaths{}, Dependencies{})
	assert.Error(t, err)
}

func TestNew_RejectsBadExcludeGlob(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Exclude.Files = []string{"[unterminated"}

	_, err = New(cfg, config.ResolvedPaths{BaseDir: "/p"})
	assert.Error(t, err)
}

func TestScanDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	files, err := a.ScanDirectories([]string{"/q", "/p", "/p"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/p/broken/bad.ts",
		"/p/feature/index.ts",
		"/p/feature/sub/index.ts",
		"/p/feature/sub/widget.ts",
		"/p/feature/view.ts",
		"/p/shared/helpers.ts",
		"/p/shared/index.ts",
		"/p/shared/internal/index.ts",
		"/p/shared/internal/util.ts",
		"/q/a.ts",
		"/q/orphan.ts",
	}, files)

	_, err = a.ScanDirectories([]string{"/missing"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestScanDirectories_IncludeTestsAndNoGitignore(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)
	a.Config.Scan.IncludeTests = true
	off := false
	a.Config.Exclude.UseGitignore = &off

	files, err := a.ScanDirectories([]string{"/p"})
	require.NoError(t, err)
	assert.Contains(t, files, "/p/feature/view.test.ts")
	assert.Contains(t, files, "/p/generated/skip.ts")
	assert.NotContains(t, files, "/p/node_modules/dep/index.ts")
}

func TestAnalyze_ClassifiesWholeTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	var notified *ports.Report
	a.SetUpdateHandler(func(r *ports.Report) { notified = r })

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)
	require.Same(t, report, notified)

	assert.Equal(t, map[string]classify.Kind{
		"/p/feature/view.ts:../shared/internal/util": classify.KindPrivateModuleImport,
		"/p/feature/view.ts:./index":                 classify.KindIndexImport,
		"/p/feature/sub/widget.ts:../view":           classify.KindParentModuleImport,
	}, findingKinds(report))

	// Findings are ordered by file then position.
	require.Len(t, report.Findings, 3)
	assert.Equal(t, "/p/feature/sub/widget.ts", report.Findings[0].File)
	assert.Equal(t, 2, report.Findings[1].Line)
	assert.Equal(t, 4, report.Findings[2].Line)
	assert.Equal(t, parser.EdgeExport, report.Findings[2].EdgeKind)

	private := report.Findings[1]
	assert.Equal(t, "/p/shared/internal/util.ts", private.Target)
	assert.Equal(t, "/p", private.ProjectRoot)
	assert.Equal(t, "Cannot import a private path. /util.ts belongs to /shared virtual module.", private.Message)

	parent := report.Findings[0]
	assert.Equal(t, "/feature/sub", parent.Violation.CurrentModule)
	assert.Equal(t, "/feature", parent.Violation.ParentModule)

	// Nothing above /q holds a package.json, so both files there abort.
	require.Len(t, report.FileErrors, 3)
	assert.Equal(t, "/p/broken/bad.ts", report.FileErrors[0].Path)
	assert.Equal(t, string(errors.CodeUnresolvedImport), report.FileErrors[0].Code)
	assert.Equal(t, "/q/a.ts", report.FileErrors[1].Path)
	assert.Equal(t, "/q/orphan.ts", report.FileErrors[2].Path)
	assert.Equal(t, string(errors.CodeEnvironment), report.FileErrors[2].Code)

	assert.Equal(t, 11, report.Summary.Files)
	assert.Equal(t, 1, report.Summary.External)
	assert.Equal(t, 3, report.Summary.Violations())
	assert.Equal(t, 1, report.Summary.ByKind[classify.KindIndexImport])
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.HasViolations())
}

func TestAnalyze_FatalErrorDropsFileFindings(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)
	for _, f := range report.Findings {
		assert.NotEqual(t, "/p/broken/bad.ts", f.File, "aborted file leaked a finding")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	first, err := a.Analyze(context.Background())
	require.NoError(t, err)
	second, err := a.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.FileErrors, second.FileErrors)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	report, err := a.AnalyzeFiles(context.Background(), []string{"/p/feature/sub/widget.ts", "/p/feature/sub/widget.ts"})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, classify.KindParentModuleImport, report.Findings[0].Violation.Kind)
	assert.Equal(t, 1, report.Summary.Files)

	report, err = a.AnalyzeFiles(context.Background(), []string{"/p/package.json"})
	require.NoError(t, err)
	require.Len(t, report.FileErrors, 1)
	assert.Equal(t, string(errors.CodeNotSupported), report.FileErrors[0].Code)
}

func TestReanalyze_PatchesEditedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/p/feature/view.ts", []byte("import { h } from '../shared';\n"), 0o644))
	report, err := a.Reanalyze(context.Background(), []string{"/p/feature/view.ts"})
	require.NoError(t, err)

	assert.Equal(t, map[string]classify.Kind{
		"/p/feature/sub/widget.ts:../view": classify.KindParentModuleImport,
	}, findingKinds(report))
	assert.Equal(t, 11, report.Summary.Files)
	assert.Len(t, report.FileErrors, 3)
}

func TestAnalyzeFiles_SkipsEmptySpecifiers(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	writeFixture(t, fs, map[string]string{
		"/p/feature/sub/blank.ts": "import x from '';\nexport * from \"\";\nimport { v } from '../view';\n",
	})
	a := newTestApp(t, fs, nil)

	report, err := a.AnalyzeFiles(context.Background(), []string{"/p/feature/sub/blank.ts"})
	require.NoError(t, err)
	assert.Empty(t, report.FileErrors)
	assert.Equal(t, map[string]classify.Kind{
		"/p/feature/sub/blank.ts:../view": classify.KindParentModuleImport,
	}, findingKinds(report))
	assert.Equal(t, 1, report.Summary.Edges)
}

func TestReanalyze_ViolationGaugesTrackCurrentReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	gauge := func(kind classify.Kind) float64 {
		return testutil.ToFloat64(observability.LastRunViolationsByKind.WithLabelValues(string(kind)))
	}

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)
	want := make(map[classify.Kind]float64, len(classify.Kinds()))
	for _, kind := range classify.Kinds() {
		want[kind] = float64(report.Summary.ByKind[kind])
		assert.Equal(t, want[kind], gauge(kind), kind)
	}

	for i := 0; i < 3; i++ {
		_, err := a.Reanalyze(context.Background(), []string{"/p/feature/sub/widget.ts"})
		require.NoError(t, err)
	}
	for _, kind := range classify.Kinds() {
		assert.Equal(t, want[kind], gauge(kind), kind)
	}
	assert.Equal(t, float64(len(report.Findings)), testutil.ToFloat64(observability.LastRunViolations))

	require.NoError(t, afero.WriteFile(fs, "/p/feature/sub/widget.ts", []byte("export const w = 1;\n"), 0o644))
	_, err = a.Reanalyze(context.Background(), []string{"/p/feature/sub/widget.ts"})
	require.NoError(t, err)
	assert.Equal(t, want[classify.KindParentModuleImport]-1, gauge(classify.KindParentModuleImport))
}

func TestReanalyze_NewFileTriggersFullRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	// Creating a barrel turns /p/broken into a module and fixes its import.
	writeFixture(t, fs, map[string]string{
		"/p/broken/missing.ts": "export default 1;\n",
		"/p/broken/index.ts":   "export {};\n",
	})
	report, err := a.Reanalyze(context.Background(), []string{"/p/broken/missing.ts", "/p/broken/index.ts"})
	require.NoError(t, err)

	assert.Equal(t, 13, report.Summary.Files)
	assert.Equal(t, classify.KindPrivateModuleImport, findingKinds(report)["/p/broken/bad.ts:../shared/internal/util"])
	require.Len(t, report.FileErrors, 2)
	assert.Equal(t, "/q/a.ts", report.FileErrors[0].Path)
}

func TestReanalyze_IgnoresExcludedPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.False(t, a.needsFullRun([]string{"/p/node_modules/dep/other.ts", "/p/feature/view.test.ts"}))
	assert.True(t, a.needsFullRun([]string{"/p/feature/index.ts"}))
	assert.True(t, a.needsFullRun([]string{"/p/tsconfig.json"}))
}

type memoryHistory struct {
	mu        sync.Mutex
	snapshots []history.Snapshot
	pruned    int
}

func (m *memoryHistory) SaveSnapshot(projectKey string, snapshot history.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot.ProjectKey = projectKey
	m.snapshots = append(m.snapshots, snapshot)
	return snapshot.RunID, nil
}

func (m *memoryHistory) LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Snapshot(nil), m.snapshots...), nil
}

func (m *memoryHistory) Prune(projectKey string, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = keep
	return 0, nil
}

func TestAnalyze_RecordsHistorySnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	store := &memoryHistory{}
	a := newTestApp(t, fs, store)
	a.Config.History.ProjectKey = "web"
	a.Config.History.Retain = 10

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)

	require.Len(t, store.snapshots, 1)
	snap := store.snapshots[0]
	assert.Equal(t, report.RunID, snap.RunID)
	assert.Equal(t, "web", snap.ProjectKey)
	assert.Equal(t, 11, snap.FileCount)
	assert.Equal(t, 1, snap.IndexImports)
	assert.Equal(t, 1, snap.ParentImports)
	assert.Equal(t, 1, snap.PrivateImports)
	assert.Equal(t, 3, snap.FileErrorCount)
	assert.Equal(t, 10, store.pruned)
}

func TestHealthService(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, fixtureFiles)
	a := newTestApp(t, fs, nil)
	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok (11 files, 3 aborted)", status.Components["analysis"])

	a.Config.History.Enabled = true
	status = NewHealthService(a).Check(context.Background())
	assert.Equal(t, "degraded", status.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "down", NewHealthService(a).Check(ctx).Status)
}
