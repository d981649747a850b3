package report

import (
	"strings"
	"testing"
	"time"
	"virtualmod/internal/data/history"
)

func sampleTrend() history.TrendReport {
	return history.TrendReport{
		ProjectKey:    "web",
		SchemaVersion: 1,
		Since:         time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Until:         time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		Window:        "24h0m0s",
		ScanCount:     1,
		Points: []history.TrendPoint{
			{
				RunID:           "r1",
				Timestamp:       time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
				CommitHash:      "abc123def456",
				FileCount:       15,
				ViolationCount:  4,
				IndexImports:    1,
				ParentImports:   2,
				PrivateImports:  1,
				FileErrorCount:  1,
				DeltaViolations: -2,
				AvgViolations:   5,
				WindowHours:     24,
			},
		},
	}
}

func TestRenderTrendTSV(t *testing.T) {
	out, err := RenderTrendTSV(sampleTrend())
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}

	body := string(out)
	if !strings.Contains(body, "Timestamp\tRun\tCommit\tFiles\tViolations") {
		t.Fatalf("missing header in output: %s", body)
	}
	if !strings.Contains(body, "r1\tabc123def456\t15\t4\t1\t2\t1\t1\t0\t-2\t0\t5.00\t24.00") {
		t.Fatalf("missing row values in output: %s", body)
	}
}

func TestRenderTrendJSON(t *testing.T) {
	report := history.TrendReport{
		SchemaVersion: 1,
		ScanCount:     2,
	}

	out, err := RenderTrendJSON(report)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if !strings.Contains(string(out), "\"scan_count\": 2") {
		t.Fatalf("expected scan_count in json output, got: %s", string(out))
	}
}

func TestRenderTrendText(t *testing.T) {
	out := RenderTrendText(sampleTrend())
	if !strings.Contains(out, "History for web: 1 runs") {
		t.Fatalf("missing heading: %s", out)
	}
	if !strings.Contains(out, "abc123de") || strings.Contains(out, "abc123def456") {
		t.Fatalf("expected shortened commit hash: %s", out)
	}
	if !strings.Contains(out, "violations=4 (-2)") {
		t.Fatalf("missing violation delta: %s", out)
	}
}
