package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"virtualmod/internal/data/history"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | o open source | t trend overlay | q quit"
	if m.mode == panelErrors {
		keys = "Keys: tab panel | / filter | o open file | q quit"
	}
	return statusStyle.Render(keys)
}

func renderTrendOverlay(report *history.TrendReport) string {
	if report == nil || len(report.Points) == 0 {
		return statusStyle.Render("Trend overlay unavailable (enable [history] to capture snapshots).")
	}
	last := report.Points[len(report.Points)-1]
	return strings.Join([]string{
		"Trend Overlay",
		fmt.Sprintf("  Window: %s | Runs: %d", report.Window, report.ScanCount),
		fmt.Sprintf("  Violations: %d (%+d) | avg %.2f", last.ViolationCount, last.DeltaViolations, last.AvgViolations),
		fmt.Sprintf("  index=%d parent=%d private=%d", last.IndexImports, last.ParentImports, last.PrivateImports),
		fmt.Sprintf("  Aborted files: %d (%+d)", last.FileErrorCount, last.DeltaFileErrors),
	}, "\n")
}

func displayPath(base, path string) string {
	if base != "" {
		if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
