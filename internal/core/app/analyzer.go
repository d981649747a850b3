package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"virtualmod/internal/core/errors"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/engine/boundary"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/engine/parser"
	"virtualmod/internal/shared/observability"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// fileResult is the outcome of analyzing one file. An aborted file carries
// err and no findings.
type fileResult struct {
	path     string
	findings []ports.Finding
	edges    int
	external int
	err      *ports.FileError
}

// session is one analysis pass. Root lookups are memoized for its lifetime
// only, so a new session sees filesystem changes made since the last one.
type session struct {
	app        *App
	roots      ports.RootResolver
	classifier ports.ImportClassifier
}

func (a *App) newSession() (*session, error) {
	cache, err := boundary.NewCache(a.Config.Performance.CacheEntries)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create root cache")
	}
	roots := a.roots.WithCache(cache)
	return &session{
		app:        a,
		roots:      roots,
		classifier: classify.NewClassifier(roots),
	}, nil
}

// analyzeFile is the per-file host loop: locate the project, extract edges,
// then resolve and classify each one. A fatal error drops everything found
// so far in the file.
func (s *session) analyzeFile(ctx context.Context, path string) fileResult {
	_, span := observability.Tracer.Start(ctx, "app.analyzeFile", trace.WithAttributes(
		attribute.String("file", path),
	))
	defer span.End()
	observability.FilesAnalyzedTotal.Inc()

	result := fileResult{path: path}
	currentDir := filepath.Dir(path)

	projectRoot, err := s.roots.ProjectRoot(currentDir)
	if err != nil {
		return result.abort(span, err)
	}

	content, err := afero.ReadFile(s.app.fs, path)
	if err != nil {
		return result.abort(span, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "read source file"),
			errors.CtxPath, path,
		))
	}

	file, err := s.app.codeParser.ParseFile(path, content)
	if err != nil {
		return result.abort(span, err)
	}
	if file.HasSyntaxErrors {
		slog.Debug("source has syntax errors; using recovered tree", "path", path)
	}

	var edges ports.ImportEdgeSource = parser.NewEdgeSource(file)
	for edge, ok := edges.Next(); ok; edge, ok = edges.Next() {
		if strings.TrimSpace(edge.Specifier) == "" {
			continue
		}
		start := time.Now()
		res, err := s.app.specResolver.Resolve(path, edge.Specifier)
		if err != nil {
			if errors.IsFatalForFile(err) {
				return result.abort(span, err)
			}
			slog.Warn("skipping import", "path", path, "specifier", edge.Specifier, "error", err)
			continue
		}

		result.edges++
		observability.EdgesClassifiedTotal.Inc()
		if res.External {
			result.external++
			observability.ExternalEdgesTotal.Inc()
			continue
		}

		violation := s.classifier.Classify(currentDir, res.Path, projectRoot)
		observability.ClassificationDuration.Observe(time.Since(start).Seconds())
		if violation == nil {
			continue
		}
		result.findings = append(result.findings, ports.Finding{
			File:        path,
			Line:        edge.Location.Line,
			Column:      edge.Location.Column,
			Specifier:   edge.Specifier,
			Target:      res.Path,
			EdgeKind:    edge.Kind,
			TypeOnly:    edge.TypeOnly,
			ProjectRoot: projectRoot,
			Violation:   *violation,
			Message:     violation.Message(),
		})
	}

	span.SetAttributes(
		attribute.Int("edges", result.edges),
		attribute.Int("findings", len(result.findings)),
	)
	return result
}

func (r fileResult) abort(span trace.Span, err error) fileResult {
	code := string(errors.CodeOf(err))
	observability.FileErrorsTotal.WithLabelValues(code).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	slog.Warn("file analysis aborted", "path", r.path, "code", code, "error", err)
	return fileResult{
		path: r.path,
		err:  &ports.FileError{Path: r.path, Code: code, Err: err.Error()},
	}
}
