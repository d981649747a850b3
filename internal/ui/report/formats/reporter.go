package formats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"virtualmod/internal/core/ports"

	"github.com/mattn/go-isatty"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Options tunes a reporter. BaseDir anchors the relative paths shown to
// users; Color is one of auto, always, never.
type Options struct {
	BaseDir string
	Color   string
}

// New returns the reporter for format. Text output colors itself only when
// out is a terminal, unless Color forces a choice.
func New(format string, out io.Writer, opts Options) (ports.ViolationReporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return &TextReporter{baseDir: opts.BaseDir, color: useColor(opts.Color, out)}, nil
	case FormatJSON:
		return &JSONReporter{}, nil
	case FormatSARIF:
		return &SARIFReporter{baseDir: opts.BaseDir}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func useColor(mode string, out io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// relativePath renders path relative to base with forward slashes. Paths
// outside base are returned unchanged.
func relativePath(base, path string) string {
	if base != "" && filepath.IsAbs(path) {
		if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}
