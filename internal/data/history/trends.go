package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport turns ordered snapshots into per-run deltas plus a
// trailing average of violations over window.
func BuildTrendReport(projectKey string, snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots available for project %q", normalizeProjectKey(projectKey))
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			RunID:          current.RunID,
			Timestamp:      current.Timestamp,
			CommitHash:     current.CommitHash,
			FileCount:      current.FileCount,
			ViolationCount: current.ViolationCount(),
			IndexImports:   current.IndexImports,
			ParentImports:  current.ParentImports,
			PrivateImports: current.PrivateImports,
			FileErrorCount: current.FileErrorCount,
		}
		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaFiles = current.FileCount - prev.FileCount
			point.DeltaViolations = current.ViolationCount() - prev.ViolationCount()
			point.DeltaFileErrors = current.FileErrorCount - prev.FileErrorCount
		}
		point.AvgViolations = round2(movingAverage(snapshots, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		ProjectKey:    normalizeProjectKey(projectKey),
		SchemaVersion: SchemaVersion,
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		ScanCount:     len(points),
		Points:        points,
	}, nil
}

func movingAverage(snapshots []Snapshot, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(snapshots[index].ViolationCount())
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	total, count := 0, 0
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		total += snapshots[i].ViolationCount()
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
