package formats

import (
	"fmt"
	"io"
	"strings"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/engine/classify"

	"github.com/charmbracelet/lipgloss"
)

var (
	fileStyle    = lipgloss.NewStyle().Underline(true)
	posStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

// TextReporter prints findings grouped by file, one line per violation,
// followed by aborted files and a summary line.
type TextReporter struct {
	baseDir string
	color   bool
}

func (r *TextReporter) paint(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func (r *TextReporter) Report(w io.Writer, report *ports.Report) error {
	var b strings.Builder

	current := ""
	for _, f := range report.Findings {
		if f.File != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = f.File
			b.WriteString(r.paint(fileStyle, relativePath(r.baseDir, f.File)))
			b.WriteString("\n")
		}
		pos := fmt.Sprintf("%d:%d", f.Line, f.Column)
		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			r.paint(posStyle, fmt.Sprintf("%-7s", pos)),
			r.paint(errorStyle, "error"),
			f.Message,
			r.paint(kindStyle, string(f.Violation.Kind)),
		)
	}

	if len(report.FileErrors) > 0 {
		if len(report.Findings) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.paint(warnStyle, "Aborted files"))
		b.WriteString("\n")
		for _, fe := range report.FileErrors {
			fmt.Fprintf(&b, "  %s  %s  %s\n", relativePath(r.baseDir, fe.Path), r.paint(kindStyle, fe.Code), fe.Err)
		}
	}

	if len(report.Findings) > 0 || len(report.FileErrors) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(r.summaryLine(report))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *TextReporter) summaryLine(report *ports.Report) string {
	s := report.Summary
	counts := fmt.Sprintf("%d files, %d imports checked, %d external", s.Files, s.Edges, s.External)
	if len(report.Findings) == 0 && len(report.FileErrors) == 0 {
		return r.paint(successStyle, "No virtual module violations") + " (" + counts + ")"
	}

	parts := make([]string, 0, len(classify.Kinds()))
	for _, kind := range classify.Kinds() {
		if n := s.ByKind[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
		}
	}
	line := r.paint(errorStyle, fmt.Sprintf("%d violations", len(report.Findings)))
	if len(parts) > 0 {
		line += " [" + strings.Join(parts, " ") + "]"
	}
	if n := len(report.FileErrors); n > 0 {
		line += ", " + r.paint(warnStyle, fmt.Sprintf("%d files aborted", n))
	}
	return line + " (" + counts + ")"
}
