package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/engine/classify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

var violatingProject = map[string]string{
	"virtualmod.toml":  "[output]\nformat = \"json\"\n",
	"package.json":     `{"name": "fixture"}`,
	"feature/index.ts": "export * from './view';\n",
	"feature/view.ts":  "export const v = 1;\nexport { w } from './index';\n",
	"feature/other.ts": "import { v } from './view';\n",
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr, coreAnalysisFactory)
	return code, stdout.String(), stderr.String()
}

func TestCheck_ReportsViolationsAsJSON(t *testing.T) {
	root := writeProject(t, violatingProject)

	code, stdout, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"))
	require.Equal(t, exitViolations, code, stderr)

	var report ports.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report), stdout)
	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, filepath.Join(root, "feature", "view.ts"), finding.File)
	assert.Equal(t, classify.KindIndexImport, finding.Violation.Kind)
	assert.Equal(t, 2, finding.Line)
	assert.Empty(t, report.FileErrors)
}

func TestCheck_FailOnViolationFlag(t *testing.T) {
	root := writeProject(t, violatingProject)

	code, _, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"), "--fail-on-violation=false")
	assert.Equal(t, exitOK, code, stderr)
}

func TestCheck_WritesSARIFToOutputPath(t *testing.T) {
	root := writeProject(t, violatingProject)
	out := filepath.Join(t.TempDir(), "reports", "virtualmod.sarif")

	code, stdout, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"), "--format", "sarif", "-o", out)
	assert.Equal(t, exitViolations, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ruleId": "VMOD001"`)
	assert.Contains(t, string(data), `"uri": "feature/view.ts"`)
}

func TestCheck_SingleFile(t *testing.T) {
	root := writeProject(t, violatingProject)

	code, stdout, stderr := runCLI(t, "check",
		"--config", filepath.Join(root, "virtualmod.toml"),
		"--file", filepath.Join(root, "feature", "other.ts"),
	)
	require.Equal(t, exitOK, code, stderr)

	var report ports.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 1, report.Summary.Files)
	assert.Empty(t, report.Findings)
}

func TestCheck_FileAndPathsConflict(t *testing.T) {
	root := writeProject(t, violatingProject)

	code, _, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"), "--file", "a.ts", root)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "--file cannot be combined")
}

func TestCheck_MissingProjectMarkerAbortsFiles(t *testing.T) {
	root := writeProject(t, map[string]string{
		"virtualmod.toml": "[output]\nformat = \"text\"\ncolor = \"never\"\n",
		"lib/a.ts":        "export const a = 1;\n",
	})

	code, stdout, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"))
	assert.Equal(t, exitViolations, code, stderr)
	assert.Contains(t, stdout, "Aborted files")
	assert.Contains(t, stdout, "lib/a.ts  ENVIRONMENT_ERROR")
}

func TestCheck_InvalidConfig(t *testing.T) {
	root := writeProject(t, map[string]string{
		"virtualmod.toml": "[output]\nformat = \"xml\"\n",
	})

	code, _, stderr := runCLI(t, "check", "--config", filepath.Join(root, "virtualmod.toml"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "error:")
}

func TestHistory_RecordsChecks(t *testing.T) {
	files := map[string]string{}
	for k, v := range violatingProject {
		files[k] = v
	}
	files["virtualmod.toml"] = "[output]\nformat = \"json\"\n\n[history]\nenabled = true\nproject_key = \"fixture\"\n"
	root := writeProject(t, files)
	cfgPath := filepath.Join(root, "virtualmod.toml")

	code, stdout, _ := runCLI(t, "history", "--config", cfgPath)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "no snapshots")

	code, _, stderr := runCLI(t, "check", "--config", cfgPath)
	require.Equal(t, exitViolations, code, stderr)

	tsv := filepath.Join(t.TempDir(), "trend.tsv")
	code, stdout, stderr = runCLI(t, "history", "--config", cfgPath, "--tsv", tsv)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "History for fixture: 1 runs")
	assert.Contains(t, stdout, "violations=1 (+0)")

	data, err := os.ReadFile(tsv)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Timestamp\tRun\tCommit")
}

func TestLanguagesCommand(t *testing.T) {
	root := writeProject(t, map[string]string{
		"virtualmod.toml": "[languages.javascript]\nenabled = false\n",
	})

	code, stdout, stderr := runCLI(t, "languages", "--config", filepath.Join(root, "virtualmod.toml"))
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "LANGUAGE")
	assert.Regexp(t, `javascript\s+false`, stdout)
	assert.Regexp(t, `typescript\s+true\s+\.ts`, stdout)
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "virtualmod v")
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "lint")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "unknown command")
}
