package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"virtualmod/internal/core/app"
	"virtualmod/internal/core/config"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/core/watcher"
	"virtualmod/internal/data/history"
	"virtualmod/internal/data/queue"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/ui/report/formats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	files := map[string]string{
		"package.json":                  `{"name": "test-project"}`,
		"tsconfig.json":                 "{\n  // aliases\n  \"compilerOptions\": {\"baseUrl\": \".\", \"paths\": {\"@shared/*\": [\"shared/*\"],},},\n}\n",
		"shared/index.ts":               "export * from './format';\n",
		"shared/format.ts":              "export const format = (s: string) => s;\n",
		"shared/internal/index.ts":      "export * from './cache';\n",
		"shared/internal/cache.ts":      "export const cache = new Map();\n",
		"feature/index.ts":              "export * from './view';\n",
		"feature/view.ts":               "import { format } from '../shared';\nimport { cache } from '@shared/internal/cache';\nimport path from 'path';\n",
		"feature/panel/index.ts":        "export * from './panel';\n",
		"feature/panel/panel.ts":        "import { format } from '../view';\n",
		"feature/panel/panel.test.ts":   "import { format } from '../index';\n",
		"node_modules/lib/index.js":     "module.exports = {};\n",
		"node_modules/lib/package.json": `{"name": "lib"}`,
	}
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newApp(t *testing.T, tmpDir string, withHistory bool) *app.App {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Resolver.TSConfig = "tsconfig.json"
	cfg.History.Enabled = withHistory
	cfg.History.ProjectKey = "test-project"

	paths, err := config.ResolvePaths(cfg, tmpDir)
	require.NoError(t, err)
	paths.StateDir = t.TempDir()
	paths.HistoryDB = filepath.Join(paths.StateDir, "history.db")

	appInstance, err := app.New(cfg, paths)
	require.NoError(t, err)
	t.Cleanup(func() { _ = appInstance.Close() })
	return appInstance
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)
	appInstance := newApp(t, tmpDir, true)

	report, err := appInstance.Analyze(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.FileErrors)

	kinds := make(map[string]classify.Kind)
	for _, f := range report.Findings {
		rel, err := filepath.Rel(tmpDir, f.File)
		require.NoError(t, err)
		kinds[filepath.ToSlash(rel)+" "+f.Specifier] = f.Violation.Kind
	}
	assert.Equal(t, map[string]classify.Kind{
		"feature/view.ts @shared/internal/cache": classify.KindPrivateModuleImport,
		"feature/panel/panel.ts ../view":         classify.KindParentModuleImport,
	}, kinds)
	assert.Equal(t, 8, report.Summary.Files, "tests and node_modules are skipped")
	assert.Equal(t, 1, report.Summary.External)

	var sarif bytes.Buffer
	rep, err := formats.New(formats.FormatSARIF, &sarif, formats.Options{BaseDir: tmpDir})
	require.NoError(t, err)
	require.NoError(t, rep.Report(&sarif, report))
	assert.Contains(t, sarif.String(), `"uri": "feature/panel/panel.ts"`)

	store, err := history.Open(filepath.Join(appInstance.Paths.StateDir, "history.db"))
	require.NoError(t, err)
	defer store.Close()
	snapshots, err := store.LoadSnapshots("test-project", time.Time{})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, report.RunID, snapshots[0].RunID)
	assert.Equal(t, 2, snapshots[0].ViolationCount())
}

func TestWatchPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)
	appInstance := newApp(t, tmpDir, false)

	_, err := appInstance.Analyze(context.Background())
	require.NoError(t, err)

	reports := make(chan *ports.Report, 8)
	appInstance.SetUpdateHandler(func(r *ports.Report) {
		select {
		case reports <- r:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := queue.NewMemoryQueue(64)
	w, err := watcher.NewWatcher(50*time.Millisecond, nil, nil, app.QueueChanges(changes))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	done := make(chan error, 1)
	go func() { done <- appInstance.ConsumeChanges(ctx, changes) }()

	panel := filepath.Join(tmpDir, "feature", "panel", "panel.ts")
	require.NoError(t, os.WriteFile(panel, []byte("import { format } from '../../shared';\n"), 0o644))

	deadline := time.After(10 * time.Second)
	for {
		select {
		case r := <-reports:
			if len(r.Findings) == 1 && r.Findings[0].Violation.Kind == classify.KindPrivateModuleImport {
				cancel()
				assert.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the watcher to re-check panel.ts")
		}
	}
}
