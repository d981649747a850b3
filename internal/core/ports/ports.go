package ports

import (
	"context"
	"io"
	"time"
	"virtualmod/internal/data/history"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/engine/parser"
	"virtualmod/internal/engine/resolver"
)

// CodeParser abstracts source parsing and language-file support checks.
type CodeParser interface {
	ParseFile(path string, content []byte) (*parser.File, error)
	GetLanguage(path string) string
	IsSupportedPath(filePath string) bool
	IsTestFile(path string) bool
	SupportedExtensions() []string
	SupportedTestFileSuffixes() []string
}

// ImportEdgeSource yields the import edges of one parsed file in source order.
type ImportEdgeSource interface {
	Next() (parser.ImportEdge, bool)
}

// SpecifierResolver maps a module specifier to the file it names.
type SpecifierResolver interface {
	Resolve(fromFile, specifier string) (resolver.Resolution, error)
}

// RootResolver answers project-root and virtual-module-root questions.
type RootResolver interface {
	ProjectRoot(startDir string) (string, error)
	ModuleRoot(startDir, projectRoot string) (string, bool)
	IsBarrel(path string) bool
}

// ImportClassifier decides whether a resolved import breaks a boundary rule.
type ImportClassifier interface {
	Classify(currentFileDir, target, projectRoot string) *classify.Violation
}

// HistoryStore abstracts snapshot persistence for trend/report workflows.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) (string, error)
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
	Prune(projectKey string, keep int) (int, error)
}

// EnqueueResult reports whether a change was queued.
type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// ChangeQueue buffers changed paths between the watcher and re-analysis.
type ChangeQueue interface {
	Enqueue(path string) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]string, error)
	// Overflowed reports and clears whether any change was dropped since the last call.
	Overflowed() bool
	Close() error
}

// ViolationReporter renders a finished report.
type ViolationReporter interface {
	Report(w io.Writer, report *Report) error
}

// Analyzer runs one analysis session over a set of files or the configured roots.
type Analyzer interface {
	Analyze(ctx context.Context) (*Report, error)
	AnalyzeFiles(ctx context.Context, paths []string) (*Report, error)
}

// Finding is one reported boundary violation.
type Finding struct {
	File        string             `json:"file"`
	Line        int                `json:"line"`
	Column      int                `json:"column"`
	Specifier   string             `json:"specifier"`
	Target      string             `json:"target"`
	EdgeKind    parser.EdgeKind    `json:"edgeKind"`
	TypeOnly    bool               `json:"typeOnly,omitempty"`
	ProjectRoot string             `json:"projectRoot"`
	Violation   classify.Violation `json:"violation"`
	Message     string             `json:"message"`
}

// FileError records a file whose analysis was aborted.
type FileError struct {
	Path string `json:"path"`
	Code string `json:"code"`
	Err  string `json:"error"`
}

// Summary aggregates counts over a report.
type Summary struct {
	Files    int                   `json:"files"`
	Edges    int                   `json:"edges"`
	External int                   `json:"external"`
	ByKind   map[classify.Kind]int `json:"byKind"`
}

// Violations returns the total number of findings counted in s.
func (s Summary) Violations() int {
	total := 0
	for _, n := range s.ByKind {
		total += n
	}
	return total
}

// Report is the outcome of one analysis session.
type Report struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Findings   []Finding     `json:"findings"`
	FileErrors []FileError   `json:"fileErrors"`
	Summary    Summary       `json:"summary"`
}

// HasViolations reports whether r contains at least one finding.
func (r *Report) HasViolations() bool {
	return r != nil && len(r.Findings) > 0
}
