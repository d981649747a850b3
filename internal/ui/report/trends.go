package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"virtualmod/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRun\tCommit\tFiles\tViolations\tIndexImports\tParentImports\tPrivateImports\tFileErrors\tDeltaFiles\tDeltaViolations\tDeltaFileErrors\tAvgViolations\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.RunID,
			point.CommitHash,
			point.FileCount,
			point.ViolationCount,
			point.IndexImports,
			point.ParentImports,
			point.PrivateImports,
			point.FileErrorCount,
			point.DeltaFiles,
			point.DeltaViolations,
			point.DeltaFileErrors,
			point.AvgViolations,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// RenderTrendText is the terminal summary printed by the history command.
func RenderTrendText(report history.TrendReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History for %s: %d runs from %s to %s (window %s)\n",
		report.ProjectKey,
		report.ScanCount,
		report.Since.Format("2006-01-02 15:04:05"),
		report.Until.Format("2006-01-02 15:04:05"),
		report.Window,
	)
	for _, p := range report.Points {
		commit := p.CommitHash
		if len(commit) > 8 {
			commit = commit[:8]
		}
		if commit == "" {
			commit = "-"
		}
		fmt.Fprintf(&b, "  %s  %-8s  violations=%d (%+d)  index=%d parent=%d private=%d  aborted=%d  avg=%.2f\n",
			p.Timestamp.Format("2006-01-02 15:04:05"),
			commit,
			p.ViolationCount,
			p.DeltaViolations,
			p.IndexImports,
			p.ParentImports,
			p.PrivateImports,
			p.FileErrorCount,
			p.AvgViolations,
		)
	}
	return b.String()
}
